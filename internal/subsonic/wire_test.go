package subsonic

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestList(t *testing.T) {
	tc := []struct {
		name  string
		input string
		want  []string
	}{
		{"array", `{"item":["a","b"]}`, []string{"a", "b"}},
		{"single object", `{"item":"a"}`, []string{"a"}},
		{"null", `{"item":null}`, nil},
		{"absent", `{}`, nil},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			var v struct {
				Item list[string] `json:"item"`
			}
			if err := json.Unmarshal([]byte(tt.input), &v); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(v.Item) != len(tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, v.Item)
			}
			for i := range tt.want {
				if v.Item[i] != tt.want[i] {
					t.Errorf("expected %v, got %v", tt.want, v.Item)
				}
			}
		})
	}
}

func TestFlexString(t *testing.T) {
	var v struct {
		A flexString `json:"a"`
		B flexString `json:"b"`
		C flexString `json:"c"`
	}
	if err := json.Unmarshal([]byte(`{"a":"al-1","b":42,"c":null}`), &v); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.A != "al-1" || v.B != "42" || v.C != "" {
		t.Errorf("unexpected values %+v", v)
	}

	if err := json.Unmarshal([]byte(`{"a":true}`), &v); err == nil {
		t.Error("expected error for boolean id")
	}
}

func TestWireTime(t *testing.T) {
	tc := []struct {
		input string
		want  time.Time
	}{
		{`"2024-03-01T10:00:00.000Z"`, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)},
		{`"2024-03-01T10:00:00"`, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)},
		{`"2024-03-01"`, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		{`"yesterday"`, time.Time{}},
		{`12`, time.Time{}},
	}

	for _, tt := range tc {
		var w wireTime
		if err := json.Unmarshal([]byte(tt.input), &w); err != nil {
			t.Fatalf("expected tolerant decode for %s, got %v", tt.input, err)
		}
		if !w.Equal(tt.want) {
			t.Errorf("%s: expected %v, got %v", tt.input, tt.want, w.Time)
		}
	}
}

func TestSongDTO(t *testing.T) {
	t.Run("Missing ID", func(t *testing.T) {
		_, err := songDTO{Title: "x"}.toTrack()
		if !errors.Is(err, errMissingField) {
			t.Errorf("expected missing field error, got %v", err)
		}
	})

	t.Run("Missing Title", func(t *testing.T) {
		_, err := songDTO{ID: "1"}.toTrack()
		if !errors.Is(err, errMissingField) {
			t.Errorf("expected missing field error, got %v", err)
		}
	})

	t.Run("OpenSubsonic Media Type", func(t *testing.T) {
		tr, err := songDTO{ID: "1", Title: "clip", Type: "song", MediaType: "video"}.toTrack()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !tr.IsVideo || tr.Type != MediaVideo {
			t.Errorf("expected mediaType video to mark the track as video, got %+v", tr)
		}

		tr, _ = songDTO{ID: "2", Title: "tune", Type: "song"}.toTrack()
		if tr.Type != MediaMusic || tr.IsVideo {
			t.Errorf("expected song type to map to music, got %v", tr.Type)
		}
	})

	t.Run("Optional Fields", func(t *testing.T) {
		var dto songDTO
		raw := `{"id":"1","title":"t","track":3,"year":1999,"size":1024,"starred":"2024-01-01T00:00:00Z"}`
		if err := json.Unmarshal([]byte(raw), &dto); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		tr, _ := dto.toTrack()
		if tr.Track == nil || *tr.Track != 3 {
			t.Errorf("expected track number 3, got %v", tr.Track)
		}
		if tr.DiscNumber != nil {
			t.Errorf("expected absent disc number to stay nil, got %v", *tr.DiscNumber)
		}
		if tr.Size == nil || *tr.Size != 1024 {
			t.Errorf("expected size 1024, got %v", tr.Size)
		}
		if tr.Starred == nil {
			t.Error("expected starred timestamp")
		}
	})
}

func TestUnwrapXML(t *testing.T) {
	body := []byte(`<?xml version="1.0" encoding="UTF-8"?>
<subsonic-response xmlns="http://subsonic.org/restapi" status="failed" version="1.16.1">
  <error code="70" message="Song not found"/>
</subsonic-response>`)

	err := unwrapXML(body)
	var e *Error
	if !errors.As(err, &e) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if e.Code != 70 || e.Message != "Song not found" {
		t.Errorf("unexpected error %+v", e)
	}
}
