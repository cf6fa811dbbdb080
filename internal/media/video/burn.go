// Package video renders subtitles onto video files with ffmpeg.
package video

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"clipscribe/internal/subtitle"
)

// Alignment values follow the ASS spec: 2 is bottom-center, 5 is
// middle-center, 8 is top-center.
const (
	AlignBottom = 2
	AlignMiddle = 5
	AlignTop    = 8
)

// Hard wrap threshold for burned cue lines, tuned for large short-form text.
const wrapColumns = 38

// Style controls the appearance of the burned subtitle track. Colors are
// RRGGBB hex, optionally with "@alpha" where alpha runs 0 (opaque) to 1
// (transparent), e.g. "000000@0.55".
type Style struct {
	FontName     string
	FontSize     int
	PrimaryColor string
	OutlineColor string
	Outline      int
	Shadow       int
	Box          bool
	BoxColor     string
	BottomMargin int
	Alignment    int
}

// DefaultStyle is the short-form look: large white text with a thick black
// outline, sitting above the bottom edge.
func DefaultStyle() Style {
	return Style{
		FontName:     "Arial",
		FontSize:     68,
		PrimaryColor: "FFFFFF",
		OutlineColor: "000000",
		Outline:      4,
		Shadow:       0,
		BoxColor:     "000000@0.55",
		BottomMargin: 160,
		Alignment:    AlignBottom,
	}
}

// Options controls the encode around the subtitle overlay.
type Options struct {
	Style Style

	// Vertical reformats the frame to a 9:16 canvas, scaling to fit and
	// padding with black.
	Vertical     bool
	TargetWidth  int
	TargetHeight int

	Codec     string
	CRF       int
	Preset    string
	CopyAudio bool
}

// DefaultOptions returns the encode defaults used by the CLI.
func DefaultOptions() Options {
	return Options{
		Style:        DefaultStyle(),
		TargetWidth:  1080,
		TargetHeight: 1920,
		Codec:        "libx264",
		CRF:          20,
		Preset:       "medium",
	}
}

// Burner hardcodes subtitle tracks onto videos using ffmpeg's libass filter.
type Burner struct {
	binary        string
	commandRunner func(ctx context.Context, name string, args ...string) error
}

// NewBurner creates a burner using the given ffmpeg binary.
func NewBurner(binary string) *Burner {
	if strings.TrimSpace(binary) == "" {
		binary = "ffmpeg"
	}
	return &Burner{binary: binary}
}

// WithCommandRunner sets a custom command runner (for testing).
func (b *Burner) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) error) {
	b.commandRunner = runner
}

// Burn renders the SRT at srtPath onto videoPath and writes the result to
// outputPath. An empty outputPath defaults to <video stem>_tiktok.mp4 next
// to the source video.
func (b *Burner) Burn(ctx context.Context, videoPath, srtPath, outputPath string, opts Options) (string, error) {
	cues, err := subtitle.ReadFile(srtPath)
	if err != nil {
		return "", fmt.Errorf("burn subtitles: %w", err)
	}
	if len(cues) == 0 {
		return "", fmt.Errorf("burn subtitles: no cues in %s", srtPath)
	}

	defaults := DefaultOptions()
	if opts.Style == (Style{}) {
		opts.Style = defaults.Style
	}
	if opts.TargetWidth <= 0 || opts.TargetHeight <= 0 {
		opts.TargetWidth = defaults.TargetWidth
		opts.TargetHeight = defaults.TargetHeight
	}
	if strings.TrimSpace(opts.Codec) == "" {
		opts.Codec = defaults.Codec
	}
	if opts.CRF <= 0 {
		opts.CRF = defaults.CRF
	}
	if strings.TrimSpace(opts.Preset) == "" {
		opts.Preset = defaults.Preset
	}
	if outputPath == "" {
		stem := strings.TrimSuffix(filepath.Base(videoPath), filepath.Ext(videoPath))
		outputPath = filepath.Join(filepath.Dir(videoPath), stem+"_tiktok.mp4")
	}

	tmpDir, err := os.MkdirTemp("", "clipscribe-burn-")
	if err != nil {
		return "", fmt.Errorf("burn subtitles: temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	assPath := filepath.Join(tmpDir, "styled.ass")
	if err := os.WriteFile(assPath, []byte(assDocument(cues, opts.Style)), 0o644); err != nil {
		return "", fmt.Errorf("burn subtitles: write styled track: %w", err)
	}

	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-y",
		"-i", videoPath,
		"-vf", filterChain(opts, assPath),
	}
	if opts.CopyAudio {
		args = append(args, "-c:a", "copy")
	} else {
		args = append(args, "-c:a", "aac", "-b:a", "192k")
	}
	args = append(args,
		"-c:v", opts.Codec,
		"-crf", strconv.Itoa(opts.CRF),
		"-preset", opts.Preset,
		outputPath,
	)
	if err := b.run(ctx, b.binary, args...); err != nil {
		return "", fmt.Errorf("burn subtitles: %w", err)
	}
	return outputPath, nil
}

func (b *Burner) run(ctx context.Context, name string, args ...string) error {
	if b.commandRunner != nil {
		return b.commandRunner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}

// filterChain assembles the -vf argument: optional vertical reframing, then
// the libass overlay.
func filterChain(opts Options, assPath string) string {
	var filters []string
	if opts.Vertical {
		filters = append(filters,
			fmt.Sprintf("scale=w=%d:h=%d:force_original_aspect_ratio=decrease", opts.TargetWidth, opts.TargetHeight),
			fmt.Sprintf("pad=%d:%d:(ow-iw)/2:(oh-ih)/2:black", opts.TargetWidth, opts.TargetHeight),
		)
	}
	filters = append(filters, "ass=filename='"+escapeFilterPath(assPath)+"'")
	return strings.Join(filters, ",")
}

// escapeFilterPath escapes the characters the ffmpeg filter parser treats as
// syntax inside a filter argument.
func escapeFilterPath(path string) string {
	normalized := strings.ReplaceAll(path, "\\", "/")
	var sb strings.Builder
	for _, r := range normalized {
		switch r {
		case ',', ':', '=', '\'', '[', ']':
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// assDocument renders a complete ASS file: one style plus a Dialogue event
// per cue.
func assDocument(cues []subtitle.Cue, style Style) string {
	backColor := "&HFF000000"
	if style.Box {
		backColor = assColor(style.BoxColor, 0.6)
	}
	alignment := style.Alignment
	if alignment == 0 {
		alignment = AlignBottom
	}

	var sb strings.Builder
	sb.WriteString("[Script Info]\n")
	sb.WriteString("ScriptType: v4.00+\n")
	sb.WriteString("PlayResX: 1080\n")
	sb.WriteString("PlayResY: 1920\n")
	sb.WriteString("WrapStyle: 2\n")
	sb.WriteString("ScaledBorderAndShadow: yes\n")
	sb.WriteString("\n[V4+ Styles]\n")
	sb.WriteString("Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding\n")
	fmt.Fprintf(&sb, "Style: Burn,%s,%d,%s,&H00FFFFFF,%s,%s,0,0,0,0,100,100,0,0,1,%d,%d,%d,100,100,%d,0\n",
		style.FontName, style.FontSize,
		assColor(style.PrimaryColor, 0),
		assColor(style.OutlineColor, 0),
		backColor,
		style.Outline, style.Shadow, alignment, style.BottomMargin,
	)
	sb.WriteString("\n[Events]\n")
	sb.WriteString("Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n")
	for _, cue := range cues {
		fmt.Fprintf(&sb, "Dialogue: 0,%s,%s,Burn,,0,0,0,,%s\n",
			assTime(cue.Start), assTime(cue.End), assText(cue.Text))
	}
	return sb.String()
}

// assColor converts "RRGGBB" or "RRGGBB@alpha" into the &HAABBGGRR format
// libass expects, where alpha 00 is opaque and FF is transparent.
func assColor(color string, defaultAlpha float64) string {
	rgb := strings.TrimPrefix(strings.TrimSpace(color), "#")
	alpha := defaultAlpha
	if at := strings.IndexByte(rgb, '@'); at >= 0 {
		if parsed, err := strconv.ParseFloat(rgb[at+1:], 64); err == nil {
			alpha = parsed
		}
		rgb = rgb[:at]
	}
	if len(rgb) != 6 {
		rgb = "FFFFFF"
	}
	alpha = math.Max(0, math.Min(1, alpha))
	return fmt.Sprintf("&H%02X%s%s%s",
		int(alpha*255), rgb[4:6], rgb[2:4], rgb[0:2])
}

func assTime(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	centis := int(math.Round(seconds * 100))
	return fmt.Sprintf("%d:%02d:%02d.%02d",
		centis/360000, centis/6000%60, centis/100%60, centis%100)
}

// assText escapes ASS control characters and re-wraps the cue at a fixed
// column so long cues fill the frame evenly.
func assText(text string) string {
	escaped := strings.NewReplacer(`\`, `\\`, "{", `\{`, "}", `\}`).Replace(text)
	var lines []string
	for _, paragraph := range strings.Split(escaped, "\n") {
		lines = append(lines, wrapLine(paragraph)...)
	}
	return strings.Join(lines, `\N`)
}

func wrapLine(paragraph string) []string {
	words := strings.Fields(paragraph)
	if len(words) == 0 {
		return nil
	}
	var lines []string
	var line []string
	width := 0
	for _, word := range words {
		if width+len(word)+1 > wrapColumns && len(line) > 0 {
			lines = append(lines, strings.Join(line, " "))
			line = []string{word}
			width = len(word) + 1
		} else {
			line = append(line, word)
			width += len(word) + 1
		}
	}
	if len(line) > 0 {
		lines = append(lines, strings.Join(line, " "))
	}
	return lines
}
