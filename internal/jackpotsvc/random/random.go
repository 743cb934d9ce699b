package random

import (
	"context"
	"errors"
)

var ErrBadRange = errors.New("draw range is empty or inverted")

// Result carries the drawn value together with the material a third party
// needs to check the draw after the fact.
type Result struct {
	Value int64  `json:"value"`
	Seed  string `json:"seed"`
	Nonce uint64 `json:"nonce"`
	Proof string `json:"proof"`
}

// Source supplies one unpredictable integer uniformly distributed in
// [min, max]. Implementations may be slow or unavailable; callers are
// expected to retry and must not hold hot locks across a Draw.
type Source interface {
	Draw(ctx context.Context, min, max int64) (Result, error)
}
