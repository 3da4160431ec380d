package audio

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/bogem/id3v2"
)

const countryDescription = "country"

// Tags holds the ID3 fields sonicsync reads and writes.
//
// Zero values mean "absent": [Tagger.Write] leaves the corresponding frame untouched.
type Tags struct {
	Title   string
	Artist  string
	Album   string
	Genre   string
	Country string
	Year    int
	Track   int
	BPM     *float64
}

// ReadTags parses the ID3 tag of the file at path. A file without a tag yields empty [Tags].
func ReadTags(path string) (*Tags, error) {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer tag.Close()

	t := &Tags{
		Title:  tag.Title(),
		Artist: tag.Artist(),
		Album:  tag.Album(),
		Genre:  tag.Genre(),
	}
	t.Year, _ = strconv.Atoi(firstNumber(tag.Year()))
	t.Track, _ = strconv.Atoi(firstNumber(tag.GetTextFrame("TRCK").Text))

	if raw := strings.TrimSpace(tag.GetTextFrame("TBPM").Text); raw != "" {
		if bpm, err := strconv.ParseFloat(raw, 64); err == nil && bpm > 0 {
			t.BPM = &bpm
		}
	}

	for _, f := range tag.GetFrames(tag.CommonID("Comments")) {
		if c, ok := f.(id3v2.CommentFrame); ok && c.Description == countryDescription {
			t.Country = c.Text
		}
	}
	return t, nil
}

// firstNumber trims "3/12" style values down to their first component.
func firstNumber(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, "/-"); i > 0 {
		return s[:i]
	}
	return s
}

// Tagger writes ID3 tags to MP3 files.
type Tagger struct {
	// Overwrite replaces frames that already carry a value. When false only missing frames are filled.
	Overwrite bool
}

// NewTagger creates a Tagger that overwrites existing frames.
func NewTagger() *Tagger {
	return &Tagger{Overwrite: true}
}

// Write applies t to the file at path and saves it. The file must exist.
func (tg *Tagger) Write(path string, t Tags) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("failed to tag %s: %w", path, err)
	}

	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer tag.Close()

	tg.setText(tag, tag.Title(), t.Title, tag.SetTitle)
	tg.setText(tag, tag.Artist(), t.Artist, tag.SetArtist)
	tg.setText(tag, tag.Album(), t.Album, tag.SetAlbum)
	tg.setText(tag, tag.Genre(), t.Genre, tag.SetGenre)

	if t.Year > 0 {
		tg.setText(tag, tag.Year(), strconv.Itoa(t.Year), tag.SetYear)
	}
	if t.Track > 0 {
		tg.setFrame(tag, "TRCK", strconv.Itoa(t.Track))
	}
	if t.BPM != nil && *t.BPM > 0 {
		tg.setFrame(tag, "TBPM", strconv.Itoa(int(*t.BPM+0.5)))
	}
	if t.Country != "" {
		tg.setCountry(tag, t.Country)
	}

	if err := tag.Save(); err != nil {
		return fmt.Errorf("failed to save tags for %s: %w", path, err)
	}
	return nil
}

func (tg *Tagger) setText(tag *id3v2.Tag, current, value string, set func(string)) {
	if value == "" || (!tg.Overwrite && current != "") {
		return
	}
	set(value)
}

func (tg *Tagger) setFrame(tag *id3v2.Tag, id, value string) {
	if !tg.Overwrite && tag.GetTextFrame(id).Text != "" {
		return
	}
	tag.DeleteFrames(id)
	tag.AddTextFrame(id, id3v2.EncodingUTF8, value)
}

func (tg *Tagger) setCountry(tag *id3v2.Tag, country string) {
	id := tag.CommonID("Comments")
	kept := []id3v2.CommentFrame{}
	for _, f := range tag.GetFrames(id) {
		c, ok := f.(id3v2.CommentFrame)
		if !ok {
			continue
		}
		if c.Description == countryDescription {
			if !tg.Overwrite {
				return
			}
			continue
		}
		kept = append(kept, c)
	}

	tag.DeleteFrames(id)
	for _, c := range kept {
		tag.AddCommentFrame(c)
	}
	tag.AddCommentFrame(id3v2.CommentFrame{
		Encoding:    id3v2.EncodingUTF8,
		Language:    "eng",
		Description: countryDescription,
		Text:        country,
	})
}

// ErrNotMP3 is returned by [CheckMP3] for files that are not MP3 audio.
var ErrNotMP3 = errors.New("not an mp3 file")

// CheckMP3 reports whether data starts like an MP3 file: an ID3 tag or an MPEG frame sync.
func CheckMP3(data []byte) error {
	switch {
	case len(data) >= 3 && string(data[:3]) == "ID3":
		return nil
	case len(data) >= 2 && data[0] == 0xff && data[1]&0xe0 == 0xe0:
		return nil
	}
	return ErrNotMP3
}
