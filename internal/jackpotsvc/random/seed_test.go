package random

import (
	"context"
	"strings"
	"testing"
)

func TestSeedSourceDraw(t *testing.T) {
	t.Run("values stay in range", func(t *testing.T) {
		s, err := NewSeedSource()
		if err != nil {
			t.Fatalf("NewSeedSource: %v", err)
		}
		for i := 0; i < 200; i++ {
			res, err := s.Draw(context.Background(), 1, 50)
			if err != nil {
				t.Fatalf("draw %d: %v", i, err)
			}
			if res.Value < 1 || res.Value > 50 {
				t.Fatalf("draw %d: value %d outside [1,50]", i, res.Value)
			}
		}
	})

	t.Run("single ticket range", func(t *testing.T) {
		s, _ := NewSeedSource()
		res, err := s.Draw(context.Background(), 7, 7)
		if err != nil {
			t.Fatalf("Draw: %v", err)
		}
		if res.Value != 7 {
			t.Fatalf("expected 7, got %d", res.Value)
		}
	})

	t.Run("inverted range rejected", func(t *testing.T) {
		s, _ := NewSeedSource()
		if _, err := s.Draw(context.Background(), 10, 1); err != ErrBadRange {
			t.Fatalf("expected ErrBadRange, got %v", err)
		}
	})

	t.Run("same seed and nonce replays the same value", func(t *testing.T) {
		a := NewSeedSourceFrom("deadbeef", 41)
		b := NewSeedSourceFrom("deadbeef", 41)
		ra, err := a.Draw(context.Background(), 1, 1000)
		if err != nil {
			t.Fatalf("Draw: %v", err)
		}
		rb, err := b.Draw(context.Background(), 1, 1000)
		if err != nil {
			t.Fatalf("Draw: %v", err)
		}
		if ra.Value != rb.Value || ra.Proof != rb.Proof {
			t.Fatalf("replay diverged: %d/%s vs %d/%s", ra.Value, ra.Proof, rb.Value, rb.Proof)
		}
	})

	t.Run("nonce advances between draws", func(t *testing.T) {
		s := NewSeedSourceFrom("deadbeef", 0)
		r1, _ := s.Draw(context.Background(), 1, 1000)
		r2, _ := s.Draw(context.Background(), 1, 1000)
		if r1.Nonce >= r2.Nonce {
			t.Fatalf("nonce did not advance: %d then %d", r1.Nonce, r2.Nonce)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		s, _ := NewSeedSource()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := s.Draw(ctx, 1, 10); err == nil {
			t.Fatal("expected error from cancelled context")
		}
	})
}

func TestVerify(t *testing.T) {
	s := NewSeedSourceFrom("cafebabe", 0)
	res, err := s.Draw(context.Background(), 1, 60)
	if err != nil {
		t.Fatalf("Draw: %v", err)
	}

	t.Run("genuine proof verifies", func(t *testing.T) {
		if !Verify(res.Proof, 1, 60, res.Value) {
			t.Fatalf("proof %q did not verify value %d", res.Proof, res.Value)
		}
	})

	t.Run("wrong value rejected", func(t *testing.T) {
		wrong := res.Value + 1
		if wrong > 60 {
			wrong = 1
		}
		if Verify(res.Proof, 1, 60, wrong) {
			t.Fatal("proof verified a value it did not produce")
		}
	})

	t.Run("tampered digest rejected", func(t *testing.T) {
		parts := strings.Split(res.Proof, ":")
		tampered := parts[0] + ":" + parts[1] + ":" + strings.Repeat("0", 64)
		if Verify(tampered, 1, 60, res.Value) {
			t.Fatal("tampered proof verified")
		}
	})

	t.Run("malformed proof rejected", func(t *testing.T) {
		if Verify("not-a-proof", 1, 60, res.Value) {
			t.Fatal("malformed proof verified")
		}
	})
}
