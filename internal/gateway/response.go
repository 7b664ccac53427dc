package gateway

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/lexiqai/assist-gateway/internal/inference"
)

// maxRequestBytes bounds inbound request bodies.
const maxRequestBytes = 1 << 20

// Invoker is the part of the inference client the endpoints depend on.
type Invoker interface {
	Invoke(ctx context.Context, req inference.Request) inference.Result
	HasCredential(capability inference.Capability) bool
}

// Response is what an endpoint returns to its caller: an HTTP status and a
// JSON body carrying exactly one capability field.
type Response struct {
	Status int
	Body   interface{}
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (r Response) write(w http.ResponseWriter) {
	WriteJSON(w, r.Status, r.Body)
}
