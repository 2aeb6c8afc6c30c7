package player

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMetadata(t *testing.T) {
	out := "vlc mpris:trackid              /org/videolan/vlc\n" +
		"vlc xesam:title                Midnight City\n" +
		"vlc xesam:artist               M83\n" +
		"vlc xesam:album                Hurry Up, We're Dreaming"

	np := parseMetadata(out)
	assert.Equal(t, "Midnight City", np.Title)
	assert.Equal(t, "M83", np.Artist)
	assert.Equal(t, "Hurry Up, We're Dreaming", np.Album)
}

func TestParseMetadataMissingFields(t *testing.T) {
	np := parseMetadata("vlc mpris:length 1000")
	assert.Equal(t, "Unknown Title", np.Title)
	assert.Equal(t, "Unknown Artist", np.Artist)
}

func TestParseVolume(t *testing.T) {
	out := "Volume: front-left: 39322 /  60% / -13.31 dB,   front-right: 39322 /  60% / -13.31 dB"
	v, ok := parseVolume(out)
	require.True(t, ok)
	assert.Equal(t, 60, v)

	_, ok = parseVolume("no percentages here")
	assert.False(t, ok)
}

func TestSetVolumeRange(t *testing.T) {
	p := New("")
	_, err := p.SetVolume(context.Background(), -1)
	require.Error(t, err)
	_, err = p.SetVolume(context.Background(), 200)
	require.Error(t, err)
}

func TestSeekValidation(t *testing.T) {
	p := New("")
	_, err := p.Seek(context.Background(), 0)
	require.Error(t, err)
}

func TestAdjustVolumeValidation(t *testing.T) {
	p := New("")
	_, err := p.AdjustVolume(context.Background(), 0)
	require.Error(t, err)
}

func TestPlayFileMissing(t *testing.T) {
	p := New("")
	_, err := p.PlayFile(context.Background(), filepath.Join(t.TempDir(), "nope.mp3"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSearchMusic(t *testing.T) {
	dir := t.TempDir()
	write := func(rel string) {
		path := filepath.Join(dir, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	}
	write("albums/city_lights.mp3")
	write("albums/city_nights.flac")
	write("albums/other_song.ogg")
	write("albums/city_notes.txt") // not an audio file

	p := New(dir)
	tracks, err := p.SearchMusic(context.Background(), "CITY", "")
	require.NoError(t, err)
	require.Len(t, tracks, 2)
	assert.Equal(t, "city_lights.mp3", tracks[0].Name)
	assert.Equal(t, "city_nights.flac", tracks[1].Name)
	assert.Equal(t, "albums", tracks[0].Folder)
}

func TestSearchMusicValidation(t *testing.T) {
	p := New(t.TempDir())

	_, err := p.SearchMusic(context.Background(), "  ", "")
	require.Error(t, err)

	_, err = p.SearchMusic(context.Background(), "x", "/does/not/exist")
	require.Error(t, err)
}
