package postgres

import (
	"reflect"
	"testing"
)

func TestAnswersRoundTripUsesStringKeys(t *testing.T) {
	encoded, err := encodeAnswers(map[int]int{0: 2, 3: 1})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if encoded != `{"0":2,"3":1}` {
		t.Fatalf("unexpected encoding %s", encoded)
	}
	decoded, err := decodeAnswers([]byte(encoded))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reflect.DeepEqual(decoded, map[int]int{0: 2, 3: 1}) {
		t.Fatalf("unexpected decoded answers %v", decoded)
	}
}

func TestDecodeAnswersRejectsNonIndexKeys(t *testing.T) {
	if _, err := decodeAnswers([]byte(`{"first":1}`)); err == nil {
		t.Fatalf("expected error for non-numeric key")
	}
	got, err := decodeAnswers(nil)
	if err != nil || len(got) != 0 {
		t.Fatalf("expected empty answers, got %v %v", got, err)
	}
}
