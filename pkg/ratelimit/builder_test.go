package ratelimit

import (
	"errors"
	"testing"
	"time"

	"mercator-hq/throttle/pkg/ratelimit/storage"
)

func TestBuilder(t *testing.T) {
	store := storage.NewInMemoryStorage[FixedWindowState]()
	policy, err := NewFixedWindowPolicy(10, "client-1", time.Second, store)
	if err != nil {
		t.Fatalf("NewFixedWindowPolicy failed: %v", err)
	}

	tests := []struct {
		name    string
		key     string
		policy  Policy
		wantErr error
	}{
		{name: "complete", key: "client-1", policy: policy, wantErr: nil},
		{name: "missing key", key: "", policy: policy, wantErr: ErrKeyNotConfigured},
		{name: "missing policy", key: "client-1", policy: nil, wantErr: ErrPolicyNotConfigured},
		{name: "missing both reports key first", key: "", policy: nil, wantErr: ErrKeyNotConfigured},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			built, err := NewBuilder().WithKey(tt.key).WithPolicy(tt.policy).Build()
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Expected error %v, got %v", tt.wantErr, err)
			}
			if tt.wantErr == nil && built != tt.policy {
				t.Error("Expected the configured policy back")
			}
		})
	}
}
