package trustlist

import (
	"errors"
	"fmt"
	"testing"
)

func TestHasCode(t *testing.T) {
	gatewayDown := WrapRemoteFetchError(errors.New("connection refused"), "gateway https://dgcg.example.com")

	if !HasCode(fmt.Errorf("refresh: %w", gatewayDown), ErrCodeRemoteFetch) {
		t.Error("expected remote fetch code through fmt wrapping")
	}
	if !HasCode(errors.Join(errors.New("timeout"), gatewayDown), ErrCodeRemoteFetch) {
		t.Error("expected remote fetch code in a joined error")
	}
	if HasCode(gatewayDown, ErrCodeInvalidTrustList) {
		t.Error("unexpected invalid trust list code")
	}
	if HasCode(errors.New("boom"), ErrCodeInternal) {
		t.Error("plain errors carry no code")
	}
}
