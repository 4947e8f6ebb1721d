package domain

import "testing"

func TestEventTypeValid(t *testing.T) {
	for _, et := range []EventType{EventOpen, EventClick, EventSubmitted, EventReported, EventDownloadedAttachment} {
		if !et.Valid() {
			t.Errorf("%s should be valid", et)
		}
	}
	for _, et := range []EventType{"", "open", "FORWARDED"} {
		if et.Valid() {
			t.Errorf("%q should be invalid", et)
		}
	}
}
