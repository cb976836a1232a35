package proto

import (
	"fmt"
	"time"

	"google.golang.org/protobuf/types/known/structpb"
)

// Kit status values in ListKitsResponse.
const (
	StatusReady    = "ready"
	StatusCooldown = "cooldown"
	StatusUsed     = "used"
)

type ClaimRequest struct {
	Kit string
}

// ClaimResponse carries the outcome of a claim. A denial is a normal
// response with Allowed false and Reason set.
type ClaimResponse struct {
	Allowed   bool
	Reason    string
	Message   string
	Remaining time.Duration
	Charged   float64
	Overflow  int
}

type KitStatus struct {
	ID          string
	DisplayName string
	Status      string
	Remaining   time.Duration
	Cost        float64
	OneTime     bool
}

type ListKitsResponse struct {
	Kits []KitStatus
}

type AdminRequest struct {
	Args []string
}

type AdminResponse struct {
	Output string
}

func (r ClaimRequest) Struct() (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{"kit": r.Kit})
}

func ClaimRequestFrom(s *structpb.Struct) ClaimRequest {
	return ClaimRequest{Kit: stringField(s, "kit")}
}

func (r ClaimResponse) Struct() (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"allowed":           r.Allowed,
		"reason":            r.Reason,
		"message":           r.Message,
		"remaining_seconds": r.Remaining.Seconds(),
		"charged":           r.Charged,
		"overflow":          float64(r.Overflow),
	})
}

func ClaimResponseFrom(s *structpb.Struct) ClaimResponse {
	return ClaimResponse{
		Allowed:   boolField(s, "allowed"),
		Reason:    stringField(s, "reason"),
		Message:   stringField(s, "message"),
		Remaining: seconds(numberField(s, "remaining_seconds")),
		Charged:   numberField(s, "charged"),
		Overflow:  int(numberField(s, "overflow")),
	}
}

func (r ListKitsResponse) Struct() (*structpb.Struct, error) {
	kits := make([]any, 0, len(r.Kits))
	for _, k := range r.Kits {
		kits = append(kits, map[string]any{
			"id":                k.ID,
			"display_name":      k.DisplayName,
			"status":            k.Status,
			"remaining_seconds": k.Remaining.Seconds(),
			"cost":              k.Cost,
			"one_time":          k.OneTime,
		})
	}
	return structpb.NewStruct(map[string]any{"kits": kits})
}

func ListKitsResponseFrom(s *structpb.Struct) (ListKitsResponse, error) {
	var out ListKitsResponse
	for i, v := range listField(s, "kits") {
		k := v.GetStructValue()
		if k == nil {
			return out, fmt.Errorf("kits[%d] is not an object", i)
		}
		out.Kits = append(out.Kits, KitStatus{
			ID:          stringField(k, "id"),
			DisplayName: stringField(k, "display_name"),
			Status:      stringField(k, "status"),
			Remaining:   seconds(numberField(k, "remaining_seconds")),
			Cost:        numberField(k, "cost"),
			OneTime:     boolField(k, "one_time"),
		})
	}
	return out, nil
}

func (r AdminRequest) Struct() (*structpb.Struct, error) {
	args := make([]any, len(r.Args))
	for i, a := range r.Args {
		args[i] = a
	}
	return structpb.NewStruct(map[string]any{"args": args})
}

func AdminRequestFrom(s *structpb.Struct) (AdminRequest, error) {
	var out AdminRequest
	for i, v := range listField(s, "args") {
		sv, ok := v.GetKind().(*structpb.Value_StringValue)
		if !ok {
			return out, fmt.Errorf("args[%d] is not a string", i)
		}
		out.Args = append(out.Args, sv.StringValue)
	}
	return out, nil
}

func (r AdminResponse) Struct() (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{"output": r.Output})
}

func AdminResponseFrom(s *structpb.Struct) AdminResponse {
	return AdminResponse{Output: stringField(s, "output")}
}

func field(s *structpb.Struct, name string) *structpb.Value {
	if s == nil {
		return nil
	}
	return s.GetFields()[name]
}

func stringField(s *structpb.Struct, name string) string {
	return field(s, name).GetStringValue()
}

func numberField(s *structpb.Struct, name string) float64 {
	return field(s, name).GetNumberValue()
}

func boolField(s *structpb.Struct, name string) bool {
	return field(s, name).GetBoolValue()
}

func listField(s *structpb.Struct, name string) []*structpb.Value {
	return field(s, name).GetListValue().GetValues()
}

func seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second)).Round(time.Millisecond)
}
