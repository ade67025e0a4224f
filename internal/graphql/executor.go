package graphql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
)

// Requester sends a single GraphQL document and returns the decoded "data" member of the
// response as a generic JSON tree (maps, slices and scalars).
type Requester interface {
	Request(ctx context.Context, query string, variables map[string]any) (any, error)
}

// ErrNoPageInfo is returned by a paged query whose response carries no pageInfo block.
var ErrNoPageInfo = errors.New("paged query response has no pageInfo")

// cursorVariable is the variable name paged queries declare for the page cursor.
const cursorVariable = "cursor"

// PageInfo is the cursor contract of a GraphQL connection.
type PageInfo struct {
	EndCursor   string `json:"endCursor"`
	HasNextPage bool   `json:"hasNextPage"`
}

// Query executes a document that yields a single result of type T for variables V.
type Query[V, T any] struct {
	requester Requester
	document  string
}

// NewQuery binds a query document to a requester.
func NewQuery[V, T any](requester Requester, document string) *Query[V, T] {
	return &Query[V, T]{requester: requester, document: document}
}

// Execute runs the query and decodes the unwrapped result into T.
func (q *Query[V, T]) Execute(ctx context.Context, vars V) (T, error) {
	var zero T
	variables, err := toVariables(vars)
	if err != nil {
		return zero, err
	}
	data, err := q.requester.Request(ctx, q.document, variables)
	if err != nil {
		return zero, err
	}
	return decode[T](UnwrapSingles(data))
}

// PagedQuery executes a document that selects a cursor-paginated connection.
// The document must declare a $cursor variable and select pageInfo next to the nodes.
type PagedQuery[V, T any] struct {
	requester Requester
	document  string
}

// NewPagedQuery binds a paged query document to a requester.
func NewPagedQuery[V, T any](requester Requester, document string) *PagedQuery[V, T] {
	return &PagedQuery[V, T]{requester: requester, document: document}
}

// Pages returns a lazy sequence of pages. Each iteration performs one request; stopping
// the range loop early issues no further requests. A failed request is yielded as the
// final element.
func (q *PagedQuery[V, T]) Pages(ctx context.Context, vars V) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T
		variables, err := toVariables(vars)
		if err != nil {
			yield(zero, err)
			return
		}
		for {
			data, err := q.requester.Request(ctx, q.document, variables)
			if err != nil {
				yield(zero, err)
				return
			}
			info, ok, err := findPageInfo(data)
			if err != nil {
				yield(zero, err)
				return
			}
			if !ok {
				yield(zero, ErrNoPageInfo)
				return
			}
			page, err := decode[T](UnwrapSingles(data, "pageInfo"))
			if err != nil {
				yield(zero, err)
				return
			}
			if !yield(page, nil) {
				return
			}
			if !info.HasNextPage || info.EndCursor == "" {
				return
			}
			variables[cursorVariable] = info.EndCursor
		}
	}
}

// Mutation executes a mutation document whose variables are wrapped in a single
// "input" variable.
type Mutation[V, T any] struct {
	requester Requester
	document  string
}

// NewMutation binds a mutation document to a requester.
func NewMutation[V, T any](requester Requester, document string) *Mutation[V, T] {
	return &Mutation[V, T]{requester: requester, document: document}
}

// Execute runs the mutation with {"input": input} and decodes the unwrapped result.
func (m *Mutation[V, T]) Execute(ctx context.Context, input V) (T, error) {
	var zero T
	wrapped, err := toVariables(input)
	if err != nil {
		return zero, err
	}
	data, err := m.requester.Request(ctx, m.document, map[string]any{"input": wrapped})
	if err != nil {
		return zero, err
	}
	return decode[T](UnwrapSingles(data))
}

// findPageInfo follows the same single-key path UnwrapSingles takes (ignoring pageInfo)
// and returns the first pageInfo object found along it.
func findPageInfo(value any) (PageInfo, bool, error) {
	for {
		obj, ok := value.(map[string]any)
		if !ok {
			return PageInfo{}, false, nil
		}
		if raw, ok := obj["pageInfo"]; ok {
			info, err := decode[PageInfo](raw)
			if err != nil {
				return PageInfo{}, false, err
			}
			return info, true, nil
		}
		next, ok := singleKey(obj, nil)
		if !ok {
			return PageInfo{}, false, nil
		}
		value = next
	}
}

func toVariables(vars any) (map[string]any, error) {
	out := map[string]any{}
	if vars == nil {
		return out, nil
	}
	raw, err := json.Marshal(vars)
	if err != nil {
		return nil, fmt.Errorf("encode graphql variables: %w", err)
	}
	if string(raw) == "null" {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("graphql variables must encode to an object: %w", err)
	}
	return out, nil
}

func decode[T any](value any) (T, error) {
	var out T
	raw, err := json.Marshal(value)
	if err != nil {
		return out, fmt.Errorf("re-encode graphql result: %w", err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("decode graphql result into %T: %w", out, err)
	}
	return out, nil
}
