// Package api defines the bench.v1.SlotService gRPC service.
//
// Messages travel as protobuf well-known types (Struct, Int32Value, Empty)
// and are converted to and from the Go types in this package at the edges,
// so neither the server nor the client touch the wire representation.
package api

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// StartJobRequest asks for a job to be started on the first idle slot. Args
// starts with the job kind.
type StartJobRequest struct {
	Args       []string
	Background bool
}

type StartJobResponse struct {
	SlotID int32
}

type StatusRequest struct{}

// SlotStatus is the state of a single slot as reported by Status.
type SlotStatus struct {
	SlotID     int32
	State      string
	HasResults bool
	Background bool
	Command    string
	RunID      string
	ExitCode   int32
}

type StatusResponse struct {
	Slots []SlotStatus
}

type KillJobRequest struct {
	SlotID int32
}

type KillJobResponse struct{}

type KillAllRequest struct{}

type KillAllResponse struct{}

type JobResultRequest struct {
	SlotID int32
}

type JobResultResponse struct {
	SlotID    int32
	Available bool
	Text      string
	Discarded bool
}

var errMissingField = errors.New("missing field")

func (r *StartJobRequest) toProto() (*structpb.Struct, error) {
	args := make([]any, len(r.Args))
	for i, a := range r.Args {
		args[i] = a
	}

	return structpb.NewStruct(map[string]any{
		"args":       args,
		"background": r.Background,
	})
}

func startJobRequestFromProto(in *structpb.Struct) (*StartJobRequest, error) {
	fields := in.GetFields()

	list, ok := fields["args"]
	if !ok {
		return nil, fmt.Errorf("args: %w", errMissingField)
	}

	values := list.GetListValue().GetValues()
	args := make([]string, 0, len(values))

	for i, v := range values {
		s, ok := v.GetKind().(*structpb.Value_StringValue)
		if !ok {
			return nil, fmt.Errorf("args[%d]: not a string", i)
		}

		args = append(args, s.StringValue)
	}

	return &StartJobRequest{
		Args:       args,
		Background: fields["background"].GetBoolValue(),
	}, nil
}

func (r *StartJobResponse) toProto() (*wrapperspb.Int32Value, error) {
	return wrapperspb.Int32(r.SlotID), nil
}

func startJobResponseFromProto(in *wrapperspb.Int32Value) *StartJobResponse {
	return &StartJobResponse{SlotID: in.GetValue()}
}

func (s SlotStatus) toValue() *structpb.Value {
	return structpb.NewStructValue(&structpb.Struct{
		Fields: map[string]*structpb.Value{
			"slot_id":     structpb.NewNumberValue(float64(s.SlotID)),
			"state":       structpb.NewStringValue(s.State),
			"has_results": structpb.NewBoolValue(s.HasResults),
			"background":  structpb.NewBoolValue(s.Background),
			"command":     structpb.NewStringValue(s.Command),
			"run_id":      structpb.NewStringValue(s.RunID),
			"exit_code":   structpb.NewNumberValue(float64(s.ExitCode)),
		},
	})
}

func slotStatusFromValue(v *structpb.Value) SlotStatus {
	f := v.GetStructValue().GetFields()

	return SlotStatus{
		SlotID:     int32(f["slot_id"].GetNumberValue()),
		State:      f["state"].GetStringValue(),
		HasResults: f["has_results"].GetBoolValue(),
		Background: f["background"].GetBoolValue(),
		Command:    f["command"].GetStringValue(),
		RunID:      f["run_id"].GetStringValue(),
		ExitCode:   int32(f["exit_code"].GetNumberValue()),
	}
}

func (r *StatusResponse) toProto() (*structpb.Struct, error) {
	slots := make([]*structpb.Value, len(r.Slots))
	for i, s := range r.Slots {
		slots[i] = s.toValue()
	}

	return &structpb.Struct{
		Fields: map[string]*structpb.Value{
			"slots": structpb.NewListValue(&structpb.ListValue{Values: slots}),
		},
	}, nil
}

func statusResponseFromProto(in *structpb.Struct) *StatusResponse {
	values := in.GetFields()["slots"].GetListValue().GetValues()

	resp := &StatusResponse{Slots: make([]SlotStatus, len(values))}
	for i, v := range values {
		resp.Slots[i] = slotStatusFromValue(v)
	}

	return resp
}

func (r *JobResultResponse) toProto() (*structpb.Struct, error) {
	return &structpb.Struct{
		Fields: map[string]*structpb.Value{
			"slot_id":   structpb.NewNumberValue(float64(r.SlotID)),
			"available": structpb.NewBoolValue(r.Available),
			"text":      structpb.NewStringValue(r.Text),
			"discarded": structpb.NewBoolValue(r.Discarded),
		},
	}, nil
}

func jobResultResponseFromProto(in *structpb.Struct) *JobResultResponse {
	f := in.GetFields()

	return &JobResultResponse{
		SlotID:    int32(f["slot_id"].GetNumberValue()),
		Available: f["available"].GetBoolValue(),
		Text:      f["text"].GetStringValue(),
		Discarded: f["discarded"].GetBoolValue(),
	}
}

func slotIDToProto(id int32) (*wrapperspb.Int32Value, error) {
	return wrapperspb.Int32(id), nil
}

func empty[T any](*T) (*emptypb.Empty, error) {
	return &emptypb.Empty{}, nil
}
