package money

import (
	"encoding/json"
	"math"
	"testing"
)

func TestRoundHalfAwayFromZero(t *testing.T) {
	cases := map[float64]string{
		1112:      "1112.00",
		0.125:     "0.13",
		171.0049:  "171.00",
		-10.555:   "-10.56",
		1062.0001: "1062.00",
	}
	for in, want := range cases {
		if got := Format(in); got != want {
			t.Fatalf("Format(%v) = %s, want %s", in, got, want)
		}
	}
}

func TestRoundNonFiniteIsZero(t *testing.T) {
	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		if !Round(v).IsZero() {
			t.Fatalf("expected zero for %v", v)
		}
	}
}

func TestAmountJSON(t *testing.T) {
	payload, err := json.Marshal(struct {
		Total Amount `json:"total"`
	}{Total: 1062.0000000001})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(payload) != `{"total":1062.00}` {
		t.Fatalf("unexpected payload %s", payload)
	}

	var decoded struct {
		Total Amount `json:"total"`
	}
	if err := json.Unmarshal([]byte(`{"total":88.5}`), &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if decoded.Total != 88.5 {
		t.Fatalf("unexpected decoded amount %v", decoded.Total)
	}
}
