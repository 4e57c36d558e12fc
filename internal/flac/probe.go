package flac

import (
	"fmt"
	"io"
	"os"

	"github.com/dhowden/tag"
)

// Info describes a file identified as FLAC.
type Info struct {
	Path   string `json:"path"`
	Title  string `json:"title,omitempty"`
	Artist string `json:"artist,omitempty"`
	Album  string `json:"album,omitempty"`
}

// Probe checks that file holds a FLAC stream and reads its tags. The
// stream marker may follow an ID3v2 tag, which the flac decoder skips.
// Missing or unreadable tags are not an error.
func Probe(file string) (*Info, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	format, fileType, err := tag.Identify(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", file, ErrNotFLAC)
	}

	var start int64
	switch {
	case fileType == tag.FLAC:
	case format == tag.ID3v2_2 || format == tag.ID3v2_3 || format == tag.ID3v2_4:
		start, err = flacAfterID3v2(f)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", file, ErrNotFLAC)
		}
	default:
		return nil, fmt.Errorf("%s: %w", file, ErrNotFLAC)
	}

	info := &Info{Path: file}
	if _, err := f.Seek(start, io.SeekStart); err != nil {
		return info, nil
	}
	m, err := tag.ReadFLACTags(f)
	if start > 0 && (err != nil || m.Title() == "") {
		// Fall back to the ID3v2 frames in front of the stream.
		if _, serr := f.Seek(0, io.SeekStart); serr == nil {
			if id3, ierr := tag.ReadID3v2Tags(f); ierr == nil {
				m, err = id3, nil
			}
		}
	}
	if err != nil {
		return info, nil
	}
	info.Title = m.Title()
	info.Artist = m.Artist()
	info.Album = m.Album()
	return info, nil
}

// flacAfterID3v2 skips the ID3v2 tag at the start of r and returns the
// offset of the FLAC stream marker that must follow it.
func flacAfterID3v2(r io.ReadSeeker) (int64, error) {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return 0, err
	}
	var h [10]byte
	if _, err := io.ReadFull(r, h[:]); err != nil {
		return 0, err
	}

	// Tag size is a 28-bit syncsafe integer excluding the header.
	size := int64(h[6]&0x7f)<<21 | int64(h[7]&0x7f)<<14 | int64(h[8]&0x7f)<<7 | int64(h[9]&0x7f)
	start := 10 + size
	if h[3] == 4 && h[5]&0x10 != 0 {
		start += 10 // footer
	}

	if _, err := r.Seek(start, io.SeekStart); err != nil {
		return 0, err
	}
	var marker [4]byte
	if _, err := io.ReadFull(r, marker[:]); err != nil {
		return 0, err
	}
	if string(marker[:]) != "fLaC" {
		return 0, ErrNotFLAC
	}
	return start, nil
}
