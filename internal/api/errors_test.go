package api

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		status int
		want   Kind
	}{
		{401, KindAuthentication},
		{403, KindAuthorization},
		{404, KindNotFound},
		{400, KindValidation},
		{422, KindValidation},
		{429, KindValidation},
		{500, KindServer},
		{502, KindServer},
		{503, KindServer},
	}
	for _, tt := range tests {
		if got := classifyStatus(tt.status); got != tt.want {
			t.Errorf("classifyStatus(%d) = %s, want %s", tt.status, got, tt.want)
		}
	}
}

func TestIsKindUnwrapsChains(t *testing.T) {
	apiErr := &Error{Kind: KindNotFound, StatusCode: 404, Op: "GET vms/v3"}
	wrapped := fmt.Errorf("fetching vm: %w", apiErr)

	if !IsNotFound(wrapped) {
		t.Error("IsNotFound should see through error wrapping")
	}
	if IsKind(wrapped, KindServer) {
		t.Error("IsKind matched the wrong kind")
	}
	if IsNotFound(errors.New("plain error")) {
		t.Error("IsNotFound matched a non-API error")
	}
}

func TestIsAuthFailure(t *testing.T) {
	tests := []struct {
		kind Kind
		want bool
	}{
		{KindAuthentication, true},
		{KindAuthorization, true},
		{KindNotFound, false},
		{KindTransport, false},
	}
	for _, tt := range tests {
		err := &Error{Kind: tt.kind, Op: "GET vms/v3"}
		if got := IsAuthFailure(err); got != tt.want {
			t.Errorf("IsAuthFailure(%s) = %v, want %v", tt.kind, got, tt.want)
		}
	}
}

func TestErrorMessage(t *testing.T) {
	err := &Error{
		Kind:       KindValidation,
		StatusCode: 400,
		Op:         "POST vms/v3",
		Detail:     "cpu count out of range",
	}
	got := err.Error()
	for _, want := range []string{"POST vms/v3", "validation", "400", "cpu count out of range"} {
		if !strings.Contains(got, want) {
			t.Errorf("Error() = %q, missing %q", got, want)
		}
	}
}
