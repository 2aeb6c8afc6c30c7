// Package player implements the audio toolset on top of the desktop
// tooling the host already has: playerctl for transport control, pactl
// for volume, and VLC for starting playback. Every command degrades to
// a clear "not available" error on hosts without a desktop session.
package player

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/toolhost/toolhost/pkg/defaults"
	"github.com/toolhost/toolhost/pkg/duration"
)

// mprisPlayer is the MPRIS player name passed to playerctl.
const mprisPlayer = "vlc"

// Player drives the host's media playback.
type Player struct {
	musicDir string
}

// New creates a Player whose search_music defaults to musicDir.
func New(musicDir string) *Player {
	return &Player{musicDir: musicDir}
}

// runTool executes a desktop helper binary and translates the two
// common failure modes: binary missing, and no player running.
func runTool(ctx context.Context, name string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, duration.PlayerCommand)
	defer cancel()

	out, err := exec.CommandContext(ctx, name, args...).Output()
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return "", fmt.Errorf("%s is not installed on this host", name)
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			msg := strings.TrimSpace(string(exitErr.Stderr))
			if msg == "" {
				msg = "no media player is running — play a file first"
			}
			return "", fmt.Errorf("%s: %s", name, msg)
		}
		return "", fmt.Errorf("running %s: %w", name, err)
	}
	return strings.TrimSpace(string(out)), nil
}

func playerctl(ctx context.Context, args ...string) (string, error) {
	return runTool(ctx, "playerctl", append([]string{"-p", mprisPlayer}, args...)...)
}

// PlayFile starts VLC on the given audio file, detached so the tool
// call returns immediately.
func (p *Player) PlayFile(ctx context.Context, path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("file_path is required")
	}
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("audio file not found: %s", path)
	}

	cmd := exec.Command("vlc", path)
	cmd.Stdout = nil
	cmd.Stderr = nil
	if err := cmd.Start(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return "", fmt.Errorf("vlc is not installed on this host")
		}
		return "", fmt.Errorf("starting vlc: %w", err)
	}
	// Detach; the player outlives the tool call.
	if err := cmd.Process.Release(); err != nil {
		return "", fmt.Errorf("detaching vlc: %w", err)
	}
	return fmt.Sprintf("Now playing: %s", filepath.Base(path)), nil
}

// Pause pauses the current track.
func (p *Player) Pause(ctx context.Context) (string, error) {
	if _, err := playerctl(ctx, "pause"); err != nil {
		return "", err
	}
	return "playback paused", nil
}

// Resume continues a paused track.
func (p *Player) Resume(ctx context.Context) (string, error) {
	if _, err := playerctl(ctx, "play"); err != nil {
		return "", err
	}
	return "playback resumed", nil
}

// Stop halts playback entirely.
func (p *Player) Stop(ctx context.Context) (string, error) {
	if _, err := playerctl(ctx, "stop"); err != nil {
		return "", err
	}
	return "playback stopped", nil
}

// Next skips to the next track in the playlist.
func (p *Player) Next(ctx context.Context) (string, error) {
	if _, err := playerctl(ctx, "next"); err != nil {
		return "", err
	}
	return "skipped to next track", nil
}

// Previous returns to the previous track in the playlist.
func (p *Player) Previous(ctx context.Context) (string, error) {
	if _, err := playerctl(ctx, "previous"); err != nil {
		return "", err
	}
	return "returned to previous track", nil
}

// Seek moves within the current track by a signed offset: positive
// jumps forward, negative back.
func (p *Player) Seek(ctx context.Context, offsetSeconds int) (string, error) {
	if offsetSeconds == 0 {
		return "", fmt.Errorf("offset_seconds must not be zero")
	}
	arg := fmt.Sprintf("%d+", offsetSeconds)
	if offsetSeconds < 0 {
		arg = fmt.Sprintf("%d-", -offsetSeconds)
	}
	if _, err := playerctl(ctx, "position", arg); err != nil {
		return "", err
	}
	if offsetSeconds > 0 {
		return fmt.Sprintf("jumped forward %d seconds", offsetSeconds), nil
	}
	return fmt.Sprintf("jumped backward %d seconds", -offsetSeconds), nil
}

// SetVolume sets the default sink volume as a percentage.
func (p *Player) SetVolume(ctx context.Context, level int) (string, error) {
	if level < 0 || level > defaults.VolumeMax {
		return "", fmt.Errorf("volume must be between 0 and %d", defaults.VolumeMax)
	}
	if _, err := runTool(ctx, "pactl", "set-sink-volume", "@DEFAULT_SINK@", fmt.Sprintf("%d%%", level)); err != nil {
		return "", err
	}
	return fmt.Sprintf("volume set to %d%%", level), nil
}

// AdjustVolume changes the default sink volume by delta percent
// (positive raises, negative lowers).
func (p *Player) AdjustVolume(ctx context.Context, delta int) (string, error) {
	if delta == 0 {
		return "", fmt.Errorf("delta must not be zero")
	}
	arg := fmt.Sprintf("+%d%%", delta)
	if delta < 0 {
		arg = fmt.Sprintf("%d%%", delta)
	}
	if _, err := runTool(ctx, "pactl", "set-sink-volume", "@DEFAULT_SINK@", arg); err != nil {
		return "", err
	}
	if delta > 0 {
		return fmt.Sprintf("volume increased by %d%%", delta), nil
	}
	return fmt.Sprintf("volume decreased by %d%%", -delta), nil
}

// GetVolume reads the current default sink volume.
func (p *Player) GetVolume(ctx context.Context) (int, error) {
	out, err := runTool(ctx, "pactl", "get-sink-volume", "@DEFAULT_SINK@")
	if err != nil {
		return 0, err
	}
	vol, ok := parseVolume(out)
	if !ok {
		return 0, fmt.Errorf("could not parse volume from pactl output")
	}
	return vol, nil
}

// parseVolume pulls the first percentage out of pactl's volume line,
// e.g. "Volume: front-left: 39322 /  60% / -13.31 dB, ...".
func parseVolume(out string) (int, bool) {
	for _, field := range strings.Fields(out) {
		if !strings.HasSuffix(field, "%") {
			continue
		}
		if v, err := strconv.Atoi(strings.TrimSuffix(field, "%")); err == nil {
			return v, true
		}
	}
	return 0, false
}

// NowPlaying describes the current track.
type NowPlaying struct {
	Title        string `json:"title"`
	Artist       string `json:"artist"`
	Album        string `json:"album"`
	Status       string `json:"status,omitempty"`
	PositionSecs int    `json:"position_seconds,omitempty"`
}

// GetNowPlaying returns metadata for the current track.
func (p *Player) GetNowPlaying(ctx context.Context) (*NowPlaying, error) {
	out, err := playerctl(ctx, "metadata")
	if err != nil {
		return nil, err
	}
	np := parseMetadata(out)

	if status, err := playerctl(ctx, "status"); err == nil {
		np.Status = status
	}
	if pos, err := playerctl(ctx, "position"); err == nil {
		if f, err := strconv.ParseFloat(pos, 64); err == nil {
			np.PositionSecs = int(f)
		}
	}
	return np, nil
}

// parseMetadata extracts title/artist/album from `playerctl metadata`,
// whose lines look like "vlc xesam:title  Some Song".
func parseMetadata(out string) *NowPlaying {
	np := &NowPlaying{Title: "Unknown Title", Artist: "Unknown Artist", Album: "Unknown Album"}
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 3 {
			continue
		}
		value := strings.Join(fields[2:], " ")
		switch fields[1] {
		case "xesam:title":
			np.Title = value
		case "xesam:artist":
			np.Artist = value
		case "xesam:album":
			np.Album = value
		}
	}
	return np
}

// Track is one search_music result.
type Track struct {
	Name   string `json:"name"`
	Folder string `json:"folder"`
	Path   string `json:"path"`
}

// SearchMusic finds audio files whose name contains term, searching
// searchDir (or the configured music directory when empty). Results
// are sorted by name and capped.
func (p *Player) SearchMusic(ctx context.Context, term, searchDir string) ([]Track, error) {
	if strings.TrimSpace(term) == "" {
		return nil, fmt.Errorf("search term is required")
	}
	if searchDir == "" {
		searchDir = p.musicDir
	}
	if info, err := os.Stat(searchDir); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("music directory not found: %s", searchDir)
	}

	term = strings.ToLower(term)
	var tracks []Track
	err := filepath.WalkDir(searchDir, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil || d.IsDir() {
			return nil
		}
		if !isAudioFile(d.Name()) || !strings.Contains(strings.ToLower(d.Name()), term) {
			return nil
		}
		tracks = append(tracks, Track{
			Name:   d.Name(),
			Folder: filepath.Base(filepath.Dir(path)),
			Path:   path,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("searching %s: %w", searchDir, err)
	}

	sort.Slice(tracks, func(i, j int) bool { return tracks[i].Name < tracks[j].Name })
	if len(tracks) > defaults.MusicSearchCap {
		tracks = tracks[:defaults.MusicSearchCap]
	}
	return tracks, nil
}

func isAudioFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range defaults.AudioExtensions {
		if ext == e {
			return true
		}
	}
	return false
}
