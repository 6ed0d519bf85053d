package models

import (
	"errors"
	"testing"
)

func TestTicketInfo_Validate(t *testing.T) {
	tests := []struct {
		name    string
		info    TicketInfo
		wantErr bool
	}{
		{
			name: "valid without event date",
			info: TicketInfo{
				EventName: "Hamlet",
				Tickets: map[string]TicketEntry{
					"1": {TicketCode: "ABC123", TicketName: "Regulier"},
				},
			},
			wantErr: false,
		},
		{
			name: "empty ticket map",
			info: TicketInfo{
				EventName: "Hamlet",
				Tickets:   map[string]TicketEntry{},
			},
			wantErr: false,
		},
		{
			name: "missing event name",
			info: TicketInfo{
				Tickets: map[string]TicketEntry{"1": {TicketCode: "ABC123", TicketName: "Regulier"}},
			},
			wantErr: true,
		},
		{
			name:    "missing tickets",
			info:    TicketInfo{EventName: "Hamlet"},
			wantErr: true,
		},
		{
			name: "ticket without code",
			info: TicketInfo{
				EventName: "Hamlet",
				Tickets:   map[string]TicketEntry{"1": {TicketName: "Regulier"}},
			},
			wantErr: true,
		},
		{
			name: "ticket without name",
			info: TicketInfo{
				EventName: "Hamlet",
				Tickets:   map[string]TicketEntry{"1": {TicketCode: "ABC123"}},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.info.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidTicketResponse) {
				t.Errorf("Validate() error = %v, want ErrInvalidTicketResponse", err)
			}
		})
	}
}
