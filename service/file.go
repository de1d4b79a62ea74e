package service

import (
	"context"
	"path/filepath"

	"go.uber.org/zap"

	"msfiles/converter"
	"msfiles/filename"
	"msfiles/kafka"
	"msfiles/models"
)

// processFile handles generic file uploads. Sources that turn out to be
// images or videos are delegated to the richer pipelines: auto-detection
// overrides the caller's "generic file" intent, but without recompression.
func (s *UploadService) processFile(ctx context.Context, task *models.Task, req UploadRequest) error {
	ext := filepath.Ext(req.Originalname)

	if converter.IsImageExt(ext) {
		s.logger.Info("Detected image file, delegate to image pipeline",
			zap.Int64("task_id", task.ID),
		)
		noConvert := false
		req.Options.Convert = &noConvert
		return s.processImage(ctx, task, req)
	}

	if converter.IsVideoExt(ext) {
		s.logger.Info("Detected video file, delegate to video pipeline",
			zap.Int64("task_id", task.ID),
		)
		noConvert := false
		req.Options.Convert = &noConvert
		return s.processVideo(ctx, task, req)
	}

	a := s.newAttempt(task, req.Dir)

	objname := filename.Generate(req.Originalname, filename.Options{
		Ext:  ext,
		Type: models.TypeMainFile,
	})

	_, err := s.saveArtifact(ctx, a, artifactParams{
		TempFilepath: filepath.Join(req.Dir, req.Filename),
		Type:         models.TypeMainFile,
		Main:         true,
		Event:        kafka.EventUploadedFile,
		Name:         objname,
	})
	if err != nil {
		return s.fail(ctx, a, err)
	}

	if err := s.finish(ctx, a); err != nil {
		return s.fail(ctx, a, err)
	}

	return nil
}
