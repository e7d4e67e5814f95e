package core

import "testing"

func TestAllGranted(t *testing.T) {
	cases := []struct {
		name     string
		statuses []int
		want     bool
	}{
		{name: "empty", statuses: nil, want: true},
		{name: "single granted", statuses: []int{PermissionGranted}, want: true},
		{name: "all granted", statuses: []int{PermissionGranted, PermissionGranted}, want: true},
		{name: "one denied", statuses: []int{PermissionGranted, PermissionDenied}, want: false},
		{name: "unknown status", statuses: []int{PermissionGranted, 2}, want: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := AllGranted(tc.statuses); got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestActivityResult_Helpers(t *testing.T) {
	ok := ActivityResult{ResultCode: ResultOK, Data: []byte{}}
	if !ok.OK() || ok.Canceled() || !ok.HasData() {
		t.Fatalf("unexpected helpers for ok result: %+v", ok)
	}
	canceled := ActivityResult{ResultCode: ResultCanceled}
	if canceled.OK() || !canceled.Canceled() || canceled.HasData() {
		t.Fatalf("unexpected helpers for canceled result: %+v", canceled)
	}
}
