package converter

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"go.uber.org/zap"
	ffprobe "gopkg.in/vansante/go-ffprobe.v2"

	"msfiles/apperr"
	"msfiles/models"
)

// Video containers the encoder supports.
const (
	VideoExtMp4  = "mp4"
	VideoExtWebm = "webm"
	VideoExtHls  = "hls"
)

func IsVideoExt(ext string) bool {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case VideoExtMp4, VideoExtWebm, VideoExtHls, "mov", "avi", "mkv", "m4v":
		return true
	default:
		return false
	}
}

func IsImageExt(ext string) bool {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "jpg", "jpeg", "png", "webp", "gif", "bmp", "tif", "tiff":
		return true
	default:
		return false
	}
}

type ConvertVideoOptions struct {
	// Ext is the target container: mp4, webm or hls.
	Ext    string
	Width  int
	Height int
}

// VideoConverter shells out to ffmpeg. Each conversion gets its own
// directory next to the input so HLS segment sets stay grouped.
type VideoConverter struct {
	logger *zap.Logger
}

func NewVideoConverter(logger *zap.Logger) *VideoConverter {
	return &VideoConverter{logger: logger}
}

// Convert transcodes the input and returns the primary output path: the
// media file for mp4/webm, the manifest for HLS.
func (c *VideoConverter) Convert(ctx context.Context, inputPath string, opts ConvertVideoOptions) (string, error) {
	outputDir, err := os.MkdirTemp(filepath.Dir(inputPath), "cv_")
	if err != nil {
		return "", apperr.Processing("failed to create conversion dir", err)
	}

	name := gonanoid.MustGenerate(randomAlphabet, 12)

	var size []string
	if opts.Width > 0 && opts.Height > 0 {
		size = []string{"-s", fmt.Sprintf("%dx%d", opts.Width, opts.Height)}
	}

	var outputPath string
	var args []string

	switch strings.ToLower(opts.Ext) {
	case VideoExtMp4:
		outputPath = filepath.Join(outputDir, name+".mp4")
		args = append([]string{"-y", "-i", inputPath}, size...)
		args = append(args,
			"-vcodec", "h264",
			"-preset", "medium",
			"-crf", "23",
			"-b:a", "128k",
			"-ac", "2",
			outputPath,
		)
	case VideoExtWebm:
		outputPath = filepath.Join(outputDir, name+".webm")
		args = append([]string{"-y", "-i", inputPath}, size...)
		args = append(args,
			"-vcodec", "libvpx",
			"-acodec", "libvorbis",
			"-preset", "medium",
			"-crf", "23",
			"-b:a", "128k",
			outputPath,
		)
	case VideoExtHls:
		outputPath = filepath.Join(outputDir, name+".m3u8")
		args = append([]string{"-y", "-i", inputPath}, size...)
		args = append(args,
			"-c:v", "libx264",
			"-preset", "medium",
			"-crf", "23",
			"-c:a", "aac",
			"-b:a", "128k",
			"-ac", "2",
			"-hls_time", "10",
			"-hls_list_size", "0",
			outputPath,
		)
	default:
		return "", apperr.Processingf("unsupported video extension [%s]", opts.Ext)
	}

	if err := c.run(ctx, args); err != nil {
		return "", err
	}

	return outputPath, nil
}

// Frame extracts one representative frame as a JPEG.
func (c *VideoConverter) Frame(ctx context.Context, inputPath string) (string, error) {
	outputDir, err := os.MkdirTemp(filepath.Dir(inputPath), "fr_")
	if err != nil {
		return "", apperr.Processing("failed to create frame dir", err)
	}

	outputPath := filepath.Join(outputDir, gonanoid.MustGenerate(randomAlphabet, 6)+".jpeg")

	args := []string{"-y", "-i", inputPath, "-vf", `select=eq(n\,1)`, "-vframes", "1", outputPath}

	if err := c.run(ctx, args); err != nil {
		return "", err
	}

	return outputPath, nil
}

// VideoSize probes the first video stream's dimensions.
func (c *VideoConverter) VideoSize(ctx context.Context, inputPath string) (models.Size, error) {
	data, err := ffprobe.ProbeURL(ctx, inputPath)
	if err != nil {
		return models.Size{}, apperr.Processing("failed to probe video", err)
	}

	stream := data.FirstVideoStream()
	if stream == nil || stream.Width == 0 || stream.Height == 0 {
		return models.Size{}, apperr.Processingf("no video stream in [%s]", inputPath)
	}

	return models.Size{Width: stream.Width, Height: stream.Height}, nil
}

func (c *VideoConverter) run(ctx context.Context, args []string) error {
	c.logger.Info("Start ffmpeg", zap.String("args", strings.Join(args, " ")))

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)

	out, err := cmd.CombinedOutput()
	if err != nil {
		c.logger.Error("ffmpeg failed",
			zap.Error(err),
			zap.String("output", tail(string(out), 2048)),
		)
		return apperr.Processing("ffmpeg conversion failed", err)
	}

	c.logger.Info("Finish ffmpeg")

	return nil
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
