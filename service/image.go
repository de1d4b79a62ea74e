package service

import (
	"context"
	"path/filepath"

	"msfiles/converter"
	"msfiles/filename"
	"msfiles/kafka"
	"msfiles/models"
)

// processImage derives the main image artifact plus the configured
// thumbnail set. With conversion disabled the source is stored verbatim
// and only thumbnails are derived.
func (s *UploadService) processImage(ctx context.Context, task *models.Task, req UploadRequest) error {
	a := s.newAttempt(task, req.Dir)

	inputPath := filepath.Join(req.Dir, req.Filename)
	opts := req.Options

	source, err := s.imageConv.ImageSize(inputPath)
	if err != nil {
		return s.fail(ctx, a, err)
	}

	mainPath := inputPath
	mainSize := source

	if opts.convertEnabled() {
		switch {
		case opts.Width > 0 && opts.Height > 0:
			// Both dimensions requested: use them exactly.
			mainSize = models.Size{Width: opts.Width, Height: opts.Height}
		case opts.Width > 0 || opts.Height > 0:
			mainSize, err = converter.SizeByProportion(converter.ProportionParams{
				TargetWidth:  opts.Width,
				TargetHeight: opts.Height,
				OriginWidth:  source.Width,
				OriginHeight: source.Height,
			})
			if err != nil {
				return s.fail(ctx, a, err)
			}
		}

		mainPath, err = s.imageConv.Convert(inputPath, converter.ConvertImageOptions{
			Ext:     opts.Ext,
			Quality: opts.Quality,
			Width:   mainSize.Width,
			Height:  mainSize.Height,
			Fit:     converter.FitCover,
		})
		if err != nil {
			return s.fail(ctx, a, err)
		}
	}

	objname := filename.Generate(req.Originalname, filename.Options{
		Width:  mainSize.Width,
		Height: mainSize.Height,
		Ext:    filepath.Ext(mainPath),
		Type:   models.TypeMainFile,
	})

	_, err = s.saveArtifact(ctx, a, artifactParams{
		TempFilepath: mainPath,
		Type:         models.TypeMainFile,
		Main:         true,
		Size:         mainSize,
		Event:        kafka.EventUploadedImage,
		Name:         objname,
	})
	if err != nil {
		return s.fail(ctx, a, err)
	}

	// Thumbnails always derive from the staged source, so downsizing the
	// main artifact neither skips them nor compounds recompression.
	if err := s.saveThumbnails(ctx, a, req.Originalname, inputPath, source); err != nil {
		return s.fail(ctx, a, err)
	}

	if err := s.finish(ctx, a); err != nil {
		return s.fail(ctx, a, err)
	}

	return nil
}

// saveThumbnails renders and persists the configured thumbnail set for an
// image on local disk. Specs larger than the source are skipped by the
// thumbnailer, so the set may be empty.
func (s *UploadService) saveThumbnails(ctx context.Context, a *attempt, originalname, sourcePath string, source models.Size) error {
	if s.thumbnailer == nil {
		return nil
	}

	thumbs, err := s.thumbnailer.Make(sourcePath, source)
	if err != nil {
		return err
	}

	for _, thumb := range thumbs {
		size, err := s.imageConv.ImageSize(thumb.Filepath)
		if err != nil {
			return err
		}

		var metadata map[string]string
		if thumb.Spec.Alias != "" {
			metadata = map[string]string{"alias": thumb.Spec.Alias}
		}

		objname := filename.Generate(originalname, filename.Options{
			Width:  size.Width,
			Height: size.Height,
			Ext:    filepath.Ext(thumb.Filepath),
			Type:   models.TypeThumbnail,
		})

		_, err = s.saveArtifact(ctx, a, artifactParams{
			TempFilepath: thumb.Filepath,
			Type:         models.TypeThumbnail,
			Size:         size,
			Event:        kafka.EventUploadedImage,
			Metadata:     metadata,
			Name:         objname,
		})
		if err != nil {
			return err
		}
	}

	return nil
}
