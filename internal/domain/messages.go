package domain

import (
	"encoding/json"
	"fmt"
)

// Kind tags every message exchanged between the queue and a worker.
type Kind string

// Requests, queue -> worker.
const (
	KindGetArea                 Kind = "GET_AREA"
	KindGetBiomes               Kind = "GET_BIOMES"
	KindGetSpawn                Kind = "GET_SPAWN"
	KindGetStrongholds          Kind = "GET_STRONGHOLDS"
	KindFindStructures          Kind = "FIND_STRUCTURES"
	KindGetBiomesWithStructures Kind = "GET_BIOMES_WITH_STRUCTURES"
	KindGetStructuresInRegions  Kind = "GET_STRUCTURES_IN_REGIONS"
	KindGetColors               Kind = "GET_COLORS"
)

// Responses, worker -> queue.
const (
	KindLoadingDone                 Kind = "LOADING_DONE"
	KindDoneGetArea                 Kind = "DONE_GET_AREA"
	KindDoneGetBiomes               Kind = "DONE_GET_BIOMES"
	KindDoneGetSpawn                Kind = "DONE_GET_SPAWN"
	KindDoneGetStrongholds          Kind = "DONE_GET_STRONGHOLDS"
	KindDoneFindStructures          Kind = "DONE_FIND_STRUCTURES"
	KindDoneGetBiomesWithStructures Kind = "DONE_GET_BIOMES_WITH_STRUCTURES"
	KindDoneGetStructuresInRegions  Kind = "DONE_GET_STRUCTURES_IN_REGIONS"
	KindDoneGetColors               Kind = "DONE_GET_COLORS"
	KindSeedUpdate                  Kind = "SEED_UPDATE"
)

var replyKinds = map[Kind]Kind{
	KindGetArea:                 KindDoneGetArea,
	KindGetBiomes:               KindDoneGetBiomes,
	KindGetSpawn:                KindDoneGetSpawn,
	KindGetStrongholds:          KindDoneGetStrongholds,
	KindFindStructures:          KindDoneFindStructures,
	KindGetBiomesWithStructures: KindDoneGetBiomesWithStructures,
	KindGetStructuresInRegions:  KindDoneGetStructuresInRegions,
	KindGetColors:               KindDoneGetColors,
}

// ReplyKind returns the completion kind a worker answers req with.
func ReplyKind(req Kind) (Kind, bool) {
	k, ok := replyKinds[req]
	return k, ok
}

// IsReply reports whether k completes a request.
func IsReply(k Kind) bool {
	for _, r := range replyKinds {
		if r == k {
			return true
		}
	}
	return false
}

// Message is the envelope crossing the worker boundary. ID is assigned by the
// queue for requests and echoed back by the reply; unsolicited messages carry 0.
type Message struct {
	Kind Kind            `json:"kind"`
	ID   uint64          `json:"id,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

// NewMessage encodes payload into a message. A nil payload leaves Data empty.
func NewMessage(kind Kind, id uint64, payload any) (Message, error) {
	msg := Message{Kind: kind, ID: id}
	if payload == nil {
		return msg, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return msg, fmt.Errorf("encode %s: %w", kind, err)
	}
	msg.Data = data
	return msg, nil
}

// Decode unmarshals the message payload into v.
func (m Message) Decode(v any) error {
	if len(m.Data) == 0 {
		return &KindError{Kind: m.Kind, Err: ErrEmptyPayload}
	}
	if err := json.Unmarshal(m.Data, v); err != nil {
		return fmt.Errorf("decode %s: %w", m.Kind, err)
	}
	return nil
}
