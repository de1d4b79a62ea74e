package service

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"msfiles/converter"
	"msfiles/filename"
	"msfiles/kafka"
	"msfiles/models"
)

// processVideo derives the requested renditions, a preview frame and the
// thumbnail set. Requested sizes are resolved against the probed source,
// sorted ascending; the largest rendition becomes the main artifact, the
// rest are alternates. With conversion disabled the source is stored
// verbatim as the main artifact.
func (s *UploadService) processVideo(ctx context.Context, task *models.Task, req UploadRequest) error {
	a := s.newAttempt(task, req.Dir)

	inputPath := filepath.Join(req.Dir, req.Filename)
	opts := req.Options

	source, err := s.videoConv.VideoSize(ctx, inputPath)
	if err != nil {
		return s.fail(ctx, a, err)
	}

	if opts.convertEnabled() {
		err = s.saveRenditions(ctx, a, req, inputPath, source)
	} else {
		err = s.saveVerbatimVideo(ctx, a, req, inputPath, source)
	}
	if err != nil {
		return s.fail(ctx, a, err)
	}

	if err := s.savePreview(ctx, a, req, inputPath); err != nil {
		return s.fail(ctx, a, err)
	}

	if err := s.finish(ctx, a); err != nil {
		return s.fail(ctx, a, err)
	}

	return nil
}

func (s *UploadService) saveVerbatimVideo(ctx context.Context, a *attempt, req UploadRequest, inputPath string, source models.Size) error {
	objname := filename.Generate(req.Originalname, filename.Options{
		Width:  source.Width,
		Height: source.Height,
		Ext:    filepath.Ext(req.Originalname),
		Type:   models.TypeMainFile,
	})

	_, err := s.saveArtifact(ctx, a, artifactParams{
		TempFilepath: inputPath,
		Type:         models.TypeMainFile,
		Main:         true,
		Size:         source,
		Event:        kafka.EventUploadedVideo,
		Name:         objname,
	})

	return err
}

func (s *UploadService) saveRenditions(ctx context.Context, a *attempt, req UploadRequest, inputPath string, source models.Size) error {
	ext := strings.ToLower(req.Options.Ext)
	if ext == "" {
		ext = converter.VideoExtMp4
	}

	sizes, err := resolveRenditionSizes(req.Options.Sizes, source)
	if err != nil {
		return err
	}

	// Largest rendition is last after the ascending sort.
	for i, size := range sizes {
		main := i == len(sizes)-1

		outputPath, err := s.videoConv.Convert(ctx, inputPath, converter.ConvertVideoOptions{
			Ext:    ext,
			Width:  size.Width,
			Height: size.Height,
		})
		if err != nil {
			return err
		}

		if ext == converter.VideoExtHls {
			err = s.saveHlsSet(ctx, a, req, outputPath, size, main)
		} else {
			err = s.saveRendition(ctx, a, req, outputPath, size, main)
		}
		if err != nil {
			return err
		}
	}

	return nil
}

func (s *UploadService) saveRendition(ctx context.Context, a *attempt, req UploadRequest, outputPath string, size models.Size, main bool) error {
	fileType := models.TypeAltVideo
	if main {
		fileType = models.TypeMainFile
	}

	objname := filename.Generate(req.Originalname, filename.Options{
		Width:  size.Width,
		Height: size.Height,
		Ext:    filepath.Ext(outputPath),
		Type:   fileType,
	})

	_, err := s.saveArtifact(ctx, a, artifactParams{
		TempFilepath: outputPath,
		Type:         fileType,
		Main:         main,
		Size:         size,
		Event:        kafka.EventUploadedVideo,
		Name:         objname,
	})

	return err
}

// saveHlsSet persists one HLS rendition: the manifest as the rendition
// artifact plus every segment as a part. Segments get generated names and
// the manifest references are rewritten to match before it is uploaded.
func (s *UploadService) saveHlsSet(ctx context.Context, a *attempt, req UploadRequest, manifestPath string, size models.Size, main bool) error {
	dir := filepath.Dir(manifestPath)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	manifest, err := os.ReadFile(manifestPath)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() || entry.Name() == filepath.Base(manifestPath) {
			continue
		}

		partName := filename.Generate(req.Originalname, filename.Options{
			Ext:  filepath.Ext(entry.Name()),
			Type: models.TypePart,
		})
		manifest = bytes.ReplaceAll(manifest, []byte(entry.Name()), []byte(partName))

		_, err := s.saveArtifact(ctx, a, artifactParams{
			TempFilepath: filepath.Join(dir, entry.Name()),
			Type:         models.TypePart,
			Size:         size,
			Event:        kafka.EventUploadedVideo,
			Name:         partName,
		})
		if err != nil {
			return err
		}
	}

	if err := os.WriteFile(manifestPath, manifest, 0o644); err != nil {
		return err
	}

	return s.saveRendition(ctx, a, req, manifestPath, size, main)
}

func (s *UploadService) savePreview(ctx context.Context, a *attempt, req UploadRequest, inputPath string) error {
	framePath, err := s.videoConv.Frame(ctx, inputPath)
	if err != nil {
		return err
	}

	// The raw frame gets the same no-resize conversion as any image.
	previewPath, err := s.imageConv.Convert(framePath, converter.ConvertImageOptions{Ext: "jpeg"})
	if err != nil {
		return err
	}

	size, err := s.imageConv.ImageSize(previewPath)
	if err != nil {
		return err
	}

	objname := filename.Generate(req.Originalname, filename.Options{
		Width:  size.Width,
		Height: size.Height,
		Ext:    filepath.Ext(previewPath),
		Type:   models.TypePreview,
	})

	_, err = s.saveArtifact(ctx, a, artifactParams{
		TempFilepath: previewPath,
		Type:         models.TypePreview,
		Size:         size,
		Event:        kafka.EventUploadedImage,
		Name:         objname,
	})
	if err != nil {
		return err
	}

	return s.saveThumbnails(ctx, a, req.Originalname, framePath, size)
}

// resolveRenditionSizes turns the requested sizes into concrete even
// dimensions and sorts them ascending by width. Without requested sizes
// the source dimensions produce a single rendition.
func resolveRenditionSizes(requested []models.Size, source models.Size) ([]models.Size, error) {
	if len(requested) == 0 {
		return []models.Size{{Width: source.Width / 2 * 2, Height: source.Height / 2 * 2}}, nil
	}

	resolved := make([]models.Size, 0, len(requested))

	for _, size := range requested {
		if size.Width > 0 && size.Height > 0 {
			// Both dimensions requested: use them exactly, even-rounded
			// for the codec.
			resolved = append(resolved, models.Size{
				Width:  size.Width / 2 * 2,
				Height: size.Height / 2 * 2,
			})
			continue
		}

		target, err := converter.SizeByProportion(converter.ProportionParams{
			TargetWidth:  size.Width,
			TargetHeight: size.Height,
			OriginWidth:  source.Width,
			OriginHeight: source.Height,
			OnlyEven:     true,
		})
		if err != nil {
			return nil, err
		}
		resolved = append(resolved, target)
	}

	sort.Slice(resolved, func(i, j int) bool {
		return resolved[i].Width < resolved[j].Width
	})

	return resolved, nil
}
