package txn

import (
	"errors"
	"fmt"
	"testing"

	"go.mongodb.org/mongo-driver/mongo"
)

func TestIsNotSupported(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil error", nil, false},
		{"generic error", errors.New("some random error"), false},
		{"illegal operation code", mongo.CommandError{Code: 20, Message: "Transaction numbers are only allowed on a replica set member"}, true},
		{"legacy code 51", mongo.CommandError{Code: 51, Message: "x"}, true},
		{"not supported in transaction code", mongo.CommandError{Code: 263, Message: "Cannot run in a multi-document transaction"}, true},
		{"unrelated command error", mongo.CommandError{Code: 11000, Message: "E11000 duplicate key error"}, false},
		{"wrapped command error", fmt.Errorf("delete Students/abc: %w", mongo.CommandError{Code: 20}), true},
		{"replica set message", errors.New("transaction failed because this is not a replica set member"), true},
		{"session not supported message", errors.New("session operations are not supported on this server"), true},
		{"transaction alone", errors.New("transaction failed"), false},
		{"transaction and session", errors.New("cannot start transaction in current session state"), true},
		{"upper case message", errors.New("TRANSACTION FAILED on REPLICA SET"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsNotSupported(tt.err); got != tt.want {
				t.Errorf("IsNotSupported(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
