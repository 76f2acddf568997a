package docstore

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson"
)

func TestPredicate_Match(t *testing.T) {
	pending := Where("isApproved", Ne, true).And("isRejected", Ne, true)

	tests := []struct {
		name   string
		pred   Predicate
		fields map[string]any
		want   bool
	}{
		{"empty predicate matches", nil, map[string]any{"a": 1}, true},
		{"empty predicate matches nil", nil, nil, true},
		{"eq match", Where("isApproved", Eq, true), map[string]any{"isApproved": true}, true},
		{"eq mismatch", Where("isApproved", Eq, true), map[string]any{"isApproved": false}, false},
		{"eq missing field", Where("isApproved", Eq, true), map[string]any{}, false},
		{"eq wrong type", Where("isApproved", Eq, true), map[string]any{"isApproved": "true"}, false},
		{"ne missing field", Where("isApproved", Ne, true), map[string]any{}, true},
		{"ne equal", Where("isApproved", Ne, true), map[string]any{"isApproved": true}, false},
		{"numeric kinds compare", Where("n", Eq, 1), map[string]any{"n": int64(1)}, true},
		{"float vs int", Where("n", Eq, 1.0), map[string]any{"n": int32(1)}, true},
		{"number vs string", Where("n", Eq, 1), map[string]any{"n": "1"}, false},
		{"nil equals nil", Where("x", Eq, nil), map[string]any{"x": nil}, true},
		{"pending fresh", pending, map[string]any{"name": "a"}, true},
		{"pending explicit false", pending, map[string]any{"isApproved": false, "isRejected": false}, true},
		{"pending excludes rejected", pending, map[string]any{"isRejected": true}, false},
		{"pending excludes approved", pending, map[string]any{"isApproved": true}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.pred.Match(tt.fields); got != tt.want {
				t.Errorf("Match(%v) = %v, want %v", tt.fields, got, tt.want)
			}
		})
	}
}

func TestPredicate_AndDoesNotMutate(t *testing.T) {
	base := make(Predicate, 1, 4)
	base[0] = Cond{Field: "a", Op: Eq, Value: 1}
	p1 := base.And("b", Eq, 2)
	p2 := base.And("c", Eq, 3)

	if len(base) != 1 {
		t.Errorf("base modified: %v", base)
	}
	if p1[1].Field != "b" || p2[1].Field != "c" {
		t.Errorf("And results share storage: %v %v", p1, p2)
	}
}

func TestPredicate_Filter(t *testing.T) {
	if f := Predicate(nil).Filter(); f != nil {
		t.Errorf("empty predicate Filter = %v, want nil", f)
	}

	f := Where("isApproved", Eq, true).And("isRejected", Ne, true).Filter()
	and, ok := f["$and"].(bson.A)
	if !ok || len(and) != 2 {
		t.Fatalf("Filter = %v", f)
	}
	first := and[0].(bson.M)["fields.isApproved"].(bson.M)
	if first["$eq"] != true {
		t.Errorf("first clause = %v", first)
	}
	second := and[1].(bson.M)["fields.isRejected"].(bson.M)
	if second["$ne"] != true {
		t.Errorf("second clause = %v", second)
	}
}

func TestPath(t *testing.T) {
	if got := Path("Students", "abc", "auth"); got != "Students/abc/auth" {
		t.Errorf("Path = %q", got)
	}
	got := ancestorsOf("Students/abc/auth/def/notes")
	if len(got) != 2 || got[0] != "Students/abc" || got[1] != "Students/abc/auth/def" {
		t.Errorf("ancestorsOf = %v", got)
	}
	if got := ancestorsOf("Students"); len(got) != 0 {
		t.Errorf("ancestorsOf top-level = %v", got)
	}
}
