// Package batch applies one operation to many independent targets and
// reports a per-item outcome for each.
//
// Items run sequentially in input order. A failing item never stops the
// ones after it, and every target appears exactly once in the result:
//
//	res := batch.Run(ctx, names, batch.Identity, func(ctx context.Context, name string) (string, error) {
//	    return "", adapter.Stop(ctx, name)
//	})
//	fmt.Println(res.Succeeded, res.NotFound, res.Failed)
package batch

import (
	"context"

	"github.com/firefly-engineering/firefly-forage/packages/lab-ctl/internal/errors"
	"github.com/firefly-engineering/firefly-forage/packages/lab-ctl/internal/logging"
)

// Kind is the outcome of one item.
type Kind string

const (
	KindSuccess  Kind = "success"
	KindNotFound Kind = "not_found"
	KindFailed   Kind = "failed"
)

// Item is the outcome of the operation on one target.
type Item struct {
	Key     string `json:"key"`
	Kind    Kind   `json:"status"`
	Detail  string `json:"detail,omitempty"`
	Error   string `json:"error,omitempty"`
	Partial bool   `json:"partial,omitempty"`

	Err error `json:"-"`
}

// Result holds the ordered per-item outcomes and their counts.
type Result struct {
	Items     []Item `json:"items"`
	Succeeded int    `json:"succeeded"`
	NotFound  int    `json:"not_found"`
	Failed    int    `json:"failed"`
}

// Total returns the number of items.
func (r *Result) Total() int {
	return len(r.Items)
}

// Keys returns the keys of items with the given outcome, in input order.
func (r *Result) Keys(kind Kind) []string {
	keys := []string{}
	for _, item := range r.Items {
		if item.Kind == kind {
			keys = append(keys, item.Key)
		}
	}
	return keys
}

// PartialKeys returns the keys of items whose first step succeeded but a
// dependent step failed.
func (r *Result) PartialKeys() []string {
	keys := []string{}
	for _, item := range r.Items {
		if item.Partial {
			keys = append(keys, item.Key)
		}
	}
	return keys
}

// Errors maps failed and not-found keys to their error messages.
func (r *Result) Errors() map[string]string {
	errs := make(map[string]string)
	for _, item := range r.Items {
		if item.Error != "" {
			errs[item.Key] = item.Error
		}
	}
	return errs
}

func (r *Result) add(item Item) {
	r.Items = append(r.Items, item)
	switch item.Kind {
	case KindSuccess:
		r.Succeeded++
	case KindNotFound:
		r.NotFound++
	default:
		r.Failed++
	}
}

// Classify maps an operation error to an outcome kind.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return KindSuccess
	case errors.IsNotFound(err):
		return KindNotFound
	default:
		return KindFailed
	}
}

// Identity is the key function for string targets.
func Identity(s string) string {
	return s
}

// Run applies op to every target in order. Once ctx is done the remaining
// targets are recorded as failed without calling op.
func Run[T any](ctx context.Context, targets []T, key func(T) string, op func(context.Context, T) (string, error)) *Result {
	res := &Result{Items: make([]Item, 0, len(targets))}

	for _, target := range targets {
		k := key(target)

		if err := ctx.Err(); err != nil {
			res.add(Item{Key: k, Kind: KindFailed, Error: err.Error(), Err: err})
			continue
		}

		detail, err := op(ctx, target)
		item := Item{Key: k, Kind: Classify(err), Detail: detail, Err: err}
		if err != nil {
			item.Error = err.Error()
			item.Partial = errors.IsPartial(err)
			logging.Debug("batch item failed", "key", k, "kind", item.Kind, "partial", item.Partial, "error", err)
		}
		res.add(item)
	}

	logging.Debug("batch complete", "total", res.Total(), "succeeded", res.Succeeded, "not_found", res.NotFound, "failed", res.Failed)
	return res
}
