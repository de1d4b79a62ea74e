package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"msfiles/converter"
	"msfiles/kafka"
	"msfiles/models"
)

func fakeRendition(t *testing.T, baseDir, name string) string {
	t.Helper()

	dir, err := os.MkdirTemp(baseDir, "cv_")
	if err != nil {
		t.Fatalf("Failed to create rendition dir: %v", err)
	}

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("encoded media"), 0o644); err != nil {
		t.Fatalf("Failed to write rendition: %v", err)
	}

	return path
}

func newVideoEnv(t *testing.T, vc *mockVideoConverter) *testEnv {
	t.Helper()
	return newTestEnv(t, func(deps *Deps) {
		deps.VideoConv = vc
	})
}

func videoConverterStub(t *testing.T, source models.Size) *mockVideoConverter {
	return &mockVideoConverter{
		sizeFunc: func(context.Context, string) (models.Size, error) {
			return source, nil
		},
		convertFunc: func(_ context.Context, inputPath string, opts converter.ConvertVideoOptions) (string, error) {
			return fakeRendition(t, filepath.Dir(inputPath), "out."+opts.Ext), nil
		},
		frameFunc: func(_ context.Context, inputPath string) (string, error) {
			framePath := filepath.Join(filepath.Dir(inputPath), "frame.jpeg")
			writeTestJPEG(t, framePath, 320, 180)
			return framePath, nil
		},
	}
}

func TestUpload_VideoRenditions(t *testing.T) {
	var converted []converter.ConvertVideoOptions

	vc := videoConverterStub(t, models.Size{Width: 1920, Height: 1080})
	inner := vc.convertFunc
	vc.convertFunc = func(ctx context.Context, inputPath string, opts converter.ConvertVideoOptions) (string, error) {
		converted = append(converted, opts)
		return inner(ctx, inputPath, opts)
	}

	env := newVideoEnv(t, vc)

	dir, name := stage(t, func(path string) {
		if err := os.WriteFile(path, []byte("raw video"), 0o644); err != nil {
			t.Fatalf("Failed to write file: %v", err)
		}
	})

	task, err := env.svc.Upload(context.Background(), UploadRequest{
		Originalname: "movie.mp4",
		Dir:          dir,
		Filename:     name,
		Action:       models.ActionUploadVideo,
		Options: UploadOptions{
			Ext:   "mp4",
			Sizes: []models.Size{{Width: 1280}, {Width: 640}},
		},
		TaskUID: "uid-v1",
	})
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	env.pool.Wait()

	final, _ := env.repo.GetTask(context.Background(), task.ID)
	if final.Status != models.StatusDone {
		t.Fatalf("Expected done, got %s with message %v", final.Status, final.ErrorMessage)
	}

	if len(converted) != 2 {
		t.Fatalf("Expected 2 conversions, got %d", len(converted))
	}
	if converted[0].Width != 640 || converted[0].Height != 360 {
		t.Errorf("Expected smallest rendition first, got %+v", converted[0])
	}
	if converted[1].Width != 1280 || converted[1].Height != 720 {
		t.Errorf("Expected largest rendition last, got %+v", converted[1])
	}

	videos := env.pub.byName(kafka.EventUploadedVideo)
	if len(videos) != 2 {
		t.Fatalf("Expected 2 uploaded_video events, got %d", len(videos))
	}

	alt := videos[0].Payload.(kafka.FileUploadEvent)
	if alt.Type != models.TypeAltVideo || alt.Width != 640 {
		t.Errorf("Unexpected alternate rendition event: %+v", alt)
	}

	main := videos[1].Payload.(kafka.FileUploadEvent)
	if main.Type != models.TypeMainFile || main.Width != 1280 {
		t.Errorf("Unexpected main rendition event: %+v", main)
	}

	// Preview frame and its thumbnail ride the image event stream.
	images := env.pub.byName(kafka.EventUploadedImage)
	if len(images) != 2 {
		t.Fatalf("Expected preview and thumbnail events, got %d", len(images))
	}
	preview := images[0].Payload.(kafka.FileUploadEvent)
	if preview.Type != models.TypePreview {
		t.Errorf("Expected preview artifact, got %+v", preview)
	}

	// The preview is the converted copy of the frame, not the raw frame.
	for _, save := range env.store.saves {
		if save.Objectname == preview.Objectname && filepath.Base(save.Path) == "frame.jpeg" {
			t.Error("Preview must be converted before upload, raw frame was saved")
		}
	}

	if final.Objectname == nil || !strings.Contains(*final.Objectname, "_1280x720_mf") {
		t.Errorf("Expected main rendition as task objectname, got %v", final.Objectname)
	}
}

func TestUpload_VideoHlsParts(t *testing.T) {
	var manifestPath string

	vc := videoConverterStub(t, models.Size{Width: 1280, Height: 720})
	vc.convertFunc = func(_ context.Context, inputPath string, opts converter.ConvertVideoOptions) (string, error) {
		dir, err := os.MkdirTemp(filepath.Dir(inputPath), "cv_")
		if err != nil {
			t.Fatalf("Failed to create rendition dir: %v", err)
		}
		for _, f := range []string{"stream0.ts", "stream1.ts"} {
			if err := os.WriteFile(filepath.Join(dir, f), []byte("segment"), 0o644); err != nil {
				t.Fatalf("Failed to write %s: %v", f, err)
			}
		}
		manifestPath = filepath.Join(dir, "stream.m3u8")
		playlist := "#EXTM3U\n#EXTINF:10,\nstream0.ts\n#EXTINF:10,\nstream1.ts\n"
		if err := os.WriteFile(manifestPath, []byte(playlist), 0o644); err != nil {
			t.Fatalf("Failed to write manifest: %v", err)
		}
		return manifestPath, nil
	}

	env := newVideoEnv(t, vc)

	dir, name := stage(t, func(path string) {
		if err := os.WriteFile(path, []byte("raw video"), 0o644); err != nil {
			t.Fatalf("Failed to write file: %v", err)
		}
	})

	task, err := env.svc.Upload(context.Background(), UploadRequest{
		Originalname: "movie.mp4",
		Dir:          dir,
		Filename:     name,
		Action:       models.ActionUploadVideo,
		Options:      UploadOptions{Ext: "hls"},
		TaskUID:      "uid-v2",
	})
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	env.pool.Wait()

	final, _ := env.repo.GetTask(context.Background(), task.ID)
	if final.Status != models.StatusDone {
		t.Fatalf("Expected done, got %s with message %v", final.Status, final.ErrorMessage)
	}

	videos := env.pub.byName(kafka.EventUploadedVideo)
	if len(videos) != 3 {
		t.Fatalf("Expected manifest and 2 part events, got %d", len(videos))
	}

	var parts, mains int
	var partNames []string
	for _, e := range videos {
		payload := e.Payload.(kafka.FileUploadEvent)
		switch payload.Type {
		case models.TypePart:
			parts++
			// Segments get generated names like every other artifact.
			if !strings.Contains(payload.Objectname, "_pt") || !strings.HasSuffix(payload.Objectname, ".ts") {
				t.Errorf("Unexpected part objectname: %s", payload.Objectname)
			}
			partNames = append(partNames, payload.Objectname)
		case models.TypeMainFile:
			mains++
			if !strings.Contains(payload.Objectname, "_mf") || !strings.HasSuffix(payload.Objectname, ".m3u8") {
				t.Errorf("Unexpected manifest objectname: %s", payload.Objectname)
			}
		}
	}
	if parts != 2 || mains != 1 {
		t.Errorf("Expected 2 parts and 1 main, got %d parts and %d mains", parts, mains)
	}

	// The uploaded manifest references the renamed segments.
	manifest, err := os.ReadFile(manifestPath)
	if err != nil {
		t.Fatalf("Failed to read manifest: %v", err)
	}
	if strings.Contains(string(manifest), "stream0.ts") {
		t.Error("Manifest still references the on-disk segment names")
	}
	for _, name := range partNames {
		if !strings.Contains(string(manifest), name) {
			t.Errorf("Manifest does not reference renamed segment %s", name)
		}
	}
}

func TestResolveRenditionSizes_ExplicitDimensions(t *testing.T) {
	resolved, err := resolveRenditionSizes(
		[]models.Size{{Width: 1280, Height: 720}},
		models.Size{Width: 1000, Height: 1000},
	)
	if err != nil {
		t.Fatalf("resolveRenditionSizes failed: %v", err)
	}

	if resolved[0].Width != 1280 || resolved[0].Height != 720 {
		t.Errorf("Both requested dimensions must be used exactly, got %dx%d",
			resolved[0].Width, resolved[0].Height)
	}
}

func TestResolveRenditionSizes_SingleDimension(t *testing.T) {
	resolved, err := resolveRenditionSizes(
		[]models.Size{{Width: 1280}},
		models.Size{Width: 1920, Height: 1080},
	)
	if err != nil {
		t.Fatalf("resolveRenditionSizes failed: %v", err)
	}

	if resolved[0].Width != 1280 || resolved[0].Height != 720 {
		t.Errorf("Expected 1280x720 from aspect ratio, got %dx%d",
			resolved[0].Width, resolved[0].Height)
	}
}

func TestUpload_VideoConvertDisabled(t *testing.T) {
	vc := videoConverterStub(t, models.Size{Width: 1920, Height: 1080})
	vc.convertFunc = func(context.Context, string, converter.ConvertVideoOptions) (string, error) {
		t.Errorf("Convert must not be called with conversion disabled")
		return "", errors.New("unexpected conversion")
	}

	env := newVideoEnv(t, vc)

	dir, name := stage(t, func(path string) {
		if err := os.WriteFile(path, []byte("raw video"), 0o644); err != nil {
			t.Fatalf("Failed to write file: %v", err)
		}
	})

	noConvert := false
	_, err := env.svc.Upload(context.Background(), UploadRequest{
		Originalname: "movie.mp4",
		Dir:          dir,
		Filename:     name,
		Action:       models.ActionUploadVideo,
		Options:      UploadOptions{Convert: &noConvert},
		TaskUID:      "uid-v3",
	})
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	env.pool.Wait()

	videos := env.pub.byName(kafka.EventUploadedVideo)
	if len(videos) != 1 {
		t.Fatalf("Expected one verbatim upload event, got %d", len(videos))
	}

	main := videos[0].Payload.(kafka.FileUploadEvent)
	if main.Type != models.TypeMainFile || main.Width != 1920 || main.Height != 1080 {
		t.Errorf("Unexpected verbatim event: %+v", main)
	}
}
