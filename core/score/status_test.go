package score

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWindow_StatusOf(t *testing.T) {
	due := DueDate{Date: date("06/30/2021"), Known: true}

	tests := []struct {
		name   string
		window Window
		today  string
		want   Status
	}{
		{name: "dlpt far away", window: DLPTWindow, today: "01/01/2021", want: StatusOK},
		{name: "dlpt just outside 3 months", window: DLPTWindow, today: "03/29/2021", want: StatusOK},
		{name: "dlpt 3 months out", window: DLPTWindow, today: "03/30/2021", want: StatusWarning},
		{name: "dlpt 15 days out", window: DLPTWindow, today: "06/15/2021", want: StatusWarning},
		{name: "dlpt 14 days out", window: DLPTWindow, today: "06/16/2021", want: StatusUrgent},
		{name: "dlpt due today", window: DLPTWindow, today: "06/30/2021", want: StatusUrgent},
		{name: "dlpt overdue", window: DLPTWindow, today: "07/01/2021", want: StatusOverdue},
		{name: "slte 2 months out", window: SLTEWindow, today: "04/30/2021", want: StatusWarning},
		{name: "slte 30 days out", window: SLTEWindow, today: "05/31/2021", want: StatusUrgent},
		{name: "slte 31 days out", window: SLTEWindow, today: "05/30/2021", want: StatusWarning},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.window.StatusOf(due, date(tt.today)))
		})
	}

	assert.Equal(t, StatusUnknown, DLPTWindow.StatusOf(Unknown, date("01/01/2021")))
}

func TestDaysUntil(t *testing.T) {
	due := DueDate{Date: date("01/10/2021"), Known: true}
	assert.Equal(t, 9, DaysUntil(due, date("01/01/2021")))
	assert.Equal(t, 0, DaysUntil(due, date("01/10/2021")))
	assert.Equal(t, -1, DaysUntil(due, date("01/11/2021")))
}
