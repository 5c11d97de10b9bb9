package core

import "testing"

func TestPaging_Clean(t *testing.T) {
	tests := []struct {
		name      string
		paging    Paging
		wantSkip  int
		wantLimit int
	}{
		{name: "zero value", paging: Paging{}, wantSkip: 0, wantLimit: 100},
		{name: "negative skip", paging: Paging{Skip: -5, Limit: 10}, wantSkip: 0, wantLimit: 10},
		{name: "negative limit", paging: Paging{Limit: -1}, wantSkip: 0, wantLimit: 100},
		{name: "limit too large", paging: Paging{Limit: 1000}, wantSkip: 0, wantLimit: 100},
		{name: "valid window", paging: Paging{Skip: 20, Limit: 50}, wantSkip: 20, wantLimit: 50},
		{name: "limit at max", paging: Paging{Limit: 100}, wantSkip: 0, wantLimit: 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.paging.Clean()
			if tt.paging.Skip != tt.wantSkip || tt.paging.Limit != tt.wantLimit {
				t.Errorf("Clean() = %+v, want Skip %d Limit %d", tt.paging, tt.wantSkip, tt.wantLimit)
			}
		})
	}
}
