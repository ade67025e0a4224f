package comment

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mjpieters/pyright-analysis-action/internal/githubapi"
)

type fakeCall struct {
	operation string
	variables map[string]any
}

// fakeRequester answers GraphQL documents by operation name from queued JSON "data"
// documents and records every request.
type fakeRequester struct {
	responses map[string][]string
	errs      map[string]error
	calls     []fakeCall
}

func newFakeRequester() *fakeRequester {
	return &fakeRequester{responses: map[string][]string{}, errs: map[string]error{}}
}

func (f *fakeRequester) respond(operation, data string) *fakeRequester {
	f.responses[operation] = append(f.responses[operation], data)
	return f
}

func (f *fakeRequester) Request(_ context.Context, query string, variables map[string]any) (any, error) {
	op := githubapi.OperationName(query)
	copied := make(map[string]any, len(variables))
	for k, v := range variables {
		copied[k] = v
	}
	f.calls = append(f.calls, fakeCall{operation: op, variables: copied})

	if err := f.errs[op]; err != nil {
		return nil, err
	}
	queue := f.responses[op]
	if len(queue) == 0 {
		return nil, fmt.Errorf("no response queued for %s", op)
	}
	f.responses[op] = queue[1:]

	var data any
	if err := json.Unmarshal([]byte(queue[0]), &data); err != nil {
		return nil, err
	}
	return data, nil
}

func (f *fakeRequester) callsTo(operation string) []fakeCall {
	var out []fakeCall
	for _, c := range f.calls {
		if c.operation == operation {
			out = append(out, c)
		}
	}
	return out
}

func mustJSON(v any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(raw)
}
