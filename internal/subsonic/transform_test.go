package subsonic

import (
	"slices"
	"testing"
)

func TestSplitGenres(t *testing.T) {
	tc := []struct {
		input string
		want  []string
	}{
		{"Rock", []string{"Rock"}},
		{"Rock; Pop", []string{"Rock", "Pop"}},
		{"Rock,Pop;Jazz", []string{"Rock", "Pop", "Jazz"}},
		{" ; ,", []string{}},
		{"", []string{}},
	}

	for _, tt := range tc {
		if got := SplitGenres(tt.input); !slices.Equal(got, tt.want) {
			t.Errorf("SplitGenres(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestToExternal(t *testing.T) {
	year, track := 1997, 2
	got := ToExternal(Track{
		ID:            "1",
		Title:         "Paranoid Android",
		Artist:        " Radiohead ",
		Album:         "OK Computer",
		Genre:         "Rock;Alternative",
		Duration:      383,
		Year:          &year,
		Track:         &track,
		MusicBrainzID: "mbid-1",
	})

	if got.RunTimeTicks != 3_830_000_000 {
		t.Errorf("expected 3830000000 ticks, got %d", got.RunTimeTicks)
	}
	if !slices.Equal(got.Artists, []string{"Radiohead"}) || !slices.Equal(got.Genres, []string{"Rock", "Alternative"}) {
		t.Errorf("unexpected artists or genres %+v", got)
	}
	if got.ProductionYear != 1997 || got.IndexNumber != 2 {
		t.Errorf("unexpected year or index %+v", got)
	}
	if got.ProviderIDs["MusicBrainzTrack"] != "mbid-1" {
		t.Errorf("unexpected provider ids %v", got.ProviderIDs)
	}

	bare := ToExternal(Track{ID: "2", Title: "x"})
	if len(bare.ProviderIDs) != 0 || bare.Artists == nil || bare.ProductionYear != 0 {
		t.Errorf("unexpected bare conversion %+v", bare)
	}
}

func TestDuplicates(t *testing.T) {
	a := ExternalTrack{Name: "Creep", Artists: []string{"Radiohead"}, Album: "Pablo Honey"}
	b := ExternalTrack{Name: "  creep ", Artists: []string{"RADIOHEAD"}, Album: "pablo honey"}
	c := ExternalTrack{Name: "Creep", Artists: []string{"Radiohead"}, Album: "Live"}

	if !IsDuplicate(b, []ExternalTrack{a}) {
		t.Error("expected case and whitespace insensitive match")
	}
	if IsDuplicate(c, []ExternalTrack{a}) {
		t.Error("different album should not match")
	}

	flagged := FlagDuplicates([]ExternalTrack{a, c, b, a})
	want := []bool{false, false, true, true}
	for i, w := range want {
		if flagged[i].Duplicate != w {
			t.Errorf("entry %d: expected duplicate=%v", i, w)
		}
	}

	if TrackKey("A  B", "C", "D") != TrackKey("a b", "c", "d") {
		t.Error("expected normalized keys to match")
	}
}
