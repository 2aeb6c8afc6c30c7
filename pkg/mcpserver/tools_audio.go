package mcpserver

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/toolhost/toolhost/pkg/defaults"
	"github.com/toolhost/toolhost/pkg/player"
)

// registerAudioTools registers the desktop media player toolset. All of
// these require a desktop session (playerctl/pactl/vlc); on headless hosts
// they return descriptive tool errors.
func (s *Server) registerAudioTools() {
	const ts = defaults.ToolsetAudio
	noProps := map[string]any{"type": "object", "properties": map[string]any{}}

	s.addTool(ts, &mcp.Tool{
		Name:        "play_file",
		Title:       "Play File",
		Description: `Start playing an audio file in VLC. Use search_music first to find
the file's full path.

EXAMPLE: {"file_path": "/home/user/Music/albums/track.mp3"}`,
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"file_path": map[string]any{
					"type":        "string",
					"description": "Absolute path to the audio file",
				},
			},
			"required": []string{"file_path"},
		},
	}, s.handlePlayFile)

	s.addTool(ts, &mcp.Tool{
		Name:        "pause_playback",
		Title:       "Pause Playback",
		Description: `Pause the current track. Resume with resume_playback.`,
		InputSchema: noProps,
		Annotations: &mcp.ToolAnnotations{IdempotentHint: true},
	}, s.handlePause)

	s.addTool(ts, &mcp.Tool{
		Name:        "resume_playback",
		Title:       "Resume Playback",
		Description: `Resume a paused track.`,
		InputSchema: noProps,
		Annotations: &mcp.ToolAnnotations{IdempotentHint: true},
	}, s.handleResume)

	s.addTool(ts, &mcp.Tool{
		Name:        "stop_playback",
		Title:       "Stop Playback",
		Description: `Stop playback entirely. Unlike pause, position is not kept.`,
		InputSchema: noProps,
		Annotations: &mcp.ToolAnnotations{IdempotentHint: true},
	}, s.handleStop)

	s.addTool(ts, &mcp.Tool{
		Name:        "next_track",
		Title:       "Next Track",
		Description: `Skip to the next track in the playlist.`,
		InputSchema: noProps,
	}, s.handleNext)

	s.addTool(ts, &mcp.Tool{
		Name:        "previous_track",
		Title:       "Previous Track",
		Description: `Return to the previous track in the playlist.`,
		InputSchema: noProps,
	}, s.handlePrevious)

	s.addTool(ts, &mcp.Tool{
		Name:        "seek",
		Title:       "Seek",
		Description: `Jump within the current track by a signed offset: positive seconds
jump forward, negative jump back.

EXAMPLE: {"offset_seconds": -30}`,
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"offset_seconds": map[string]any{
					"type":        "integer",
					"description": "Seconds to jump (positive = forward, negative = back, not 0)",
				},
			},
			"required": []string{"offset_seconds"},
		},
	}, s.handleSeek)

	s.addTool(ts, &mcp.Tool{
		Name:        "set_volume",
		Title:       "Set Volume",
		Description: fmt.Sprintf(`Set the system default sink volume to an absolute percentage
(0–%d; values over 100 over-amplify).`, defaults.VolumeMax),
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"level": map[string]any{
					"type":        "integer",
					"description": fmt.Sprintf("Volume percentage (0–%d)", defaults.VolumeMax),
				},
				"delta": map[string]any{
					"type":        "integer",
					"description": "Relative change instead: +10 raises, -10 lowers. Mutually exclusive with level.",
				},
			},
		},
	}, s.handleSetVolume)

	s.addTool(ts, &mcp.Tool{
		Name:        "get_volume",
		Title:       "Get Volume",
		Description: `Read the current default sink volume percentage.`,
		InputSchema: noProps,
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, s.handleGetVolume)

	s.addTool(ts, &mcp.Tool{
		Name:        "now_playing",
		Title:       "Now Playing",
		Description: `Show the current track's title, artist, album, playback status, and
position.`,
		InputSchema: noProps,
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, s.handleNowPlaying)

	s.addTool(ts, &mcp.Tool{
		Name:        "search_music",
		Title:       "Search Music",
		Description: fmt.Sprintf(`Find audio files by name under the music directory (or a given
directory). Matches %s files, capped at %d results.

EXAMPLE: {"query": "nocturne"}`, audioExtList(), defaults.MusicSearchCap),
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "Substring to match in file names (case-insensitive)",
				},
				"directory": map[string]any{
					"type":        "string",
					"description": "Directory to search (default: the configured music dir)",
				},
			},
			"required": []string{"query"},
		},
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, s.handleSearchMusic)
}

// audioExtList renders the playable extensions for tool descriptions.
func audioExtList() string {
	out := ""
	for i, e := range defaults.AudioExtensions {
		if i > 0 {
			out += "/"
		}
		out += e
	}
	return out
}

// audioText adapts the player's (string, error) methods to tool results.
func audioText(msg string, err error) (*mcp.CallToolResult, error) {
	if err != nil {
		return errorResult("%v", err), nil
	}
	return textResult(msg), nil
}

func (s *Server) handlePlayFile(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		FilePath string `json:"file_path"`
	}
	if err := parseArgs(req, &args); err != nil {
		return errorResult("%v", err), nil
	}
	return audioText(s.audio.PlayFile(ctx, args.FilePath))
}

func (s *Server) handlePause(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return audioText(s.audio.Pause(ctx))
}

func (s *Server) handleResume(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return audioText(s.audio.Resume(ctx))
}

func (s *Server) handleStop(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return audioText(s.audio.Stop(ctx))
}

func (s *Server) handleNext(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return audioText(s.audio.Next(ctx))
}

func (s *Server) handlePrevious(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return audioText(s.audio.Previous(ctx))
}

func (s *Server) handleSeek(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		OffsetSeconds int `json:"offset_seconds"`
	}
	if err := parseArgs(req, &args); err != nil {
		return errorResult("%v", err), nil
	}
	return audioText(s.audio.Seek(ctx, args.OffsetSeconds))
}

func (s *Server) handleSetVolume(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := struct {
		Level *int `json:"level"`
		Delta *int `json:"delta"`
	}{}
	if err := parseArgs(req, &args); err != nil {
		return errorResult("%v", err), nil
	}
	switch {
	case args.Level != nil && args.Delta != nil:
		return errorResult("level and delta are mutually exclusive"), nil
	case args.Level != nil:
		return audioText(s.audio.SetVolume(ctx, *args.Level))
	case args.Delta != nil:
		return audioText(s.audio.AdjustVolume(ctx, *args.Delta))
	default:
		return errorResult("either level or delta is required"), nil
	}
}

func (s *Server) handleGetVolume(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	vol, err := s.audio.GetVolume(ctx)
	if err != nil {
		return errorResult("%v", err), nil
	}
	return jsonResult(struct {
		Volume int `json:"volume_percent"`
	}{Volume: vol})
}

func (s *Server) handleNowPlaying(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	np, err := s.audio.GetNowPlaying(ctx)
	if err != nil {
		return errorResult("%v", err), nil
	}
	return jsonResult(np)
}

func (s *Server) handleSearchMusic(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		Query     string `json:"query"`
		Directory string `json:"directory"`
	}
	if err := parseArgs(req, &args); err != nil {
		return errorResult("%v", err), nil
	}
	tracks, err := s.audio.SearchMusic(ctx, args.Query, args.Directory)
	if err != nil {
		return errorResult("%v", err), nil
	}
	return jsonResult(struct {
		Count  int            `json:"count"`
		Tracks []player.Track `json:"tracks"`
	}{Count: len(tracks), Tracks: tracks})
}
