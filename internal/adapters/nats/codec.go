package natsadapter

import (
	"encoding/json"
	"fmt"

	"github.com/samirrijal/platekit/internal/core/domain"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// Run events travel as protobuf-encoded google.protobuf.Struct messages so
// that non-Go consumers can decode them with any protobuf runtime.

// EncodeRunEvent serialises an event into its wire form.
func EncodeRunEvent(event *domain.FilterRunEvent) ([]byte, error) {
	raw, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal run event: %w", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("flatten run event: %w", err)
	}
	st, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("struct run event: %w", err)
	}
	return proto.Marshal(st)
}

// DecodeRunEvent parses the wire form produced by EncodeRunEvent.
func DecodeRunEvent(data []byte) (*domain.FilterRunEvent, error) {
	var st structpb.Struct
	if err := proto.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("unmarshal run event: %w", err)
	}
	raw, err := st.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var event domain.FilterRunEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		return nil, fmt.Errorf("decode run event: %w", err)
	}
	return &event, nil
}

// RunEventJSON converts the wire form into JSON for browser clients.
func RunEventJSON(data []byte) ([]byte, error) {
	event, err := DecodeRunEvent(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(event)
}
