// Command seed-courses loads the sample catalog into the course database so
// a fresh deployment has something to show.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/selams/selams-web/internal/catalog"
	"github.com/selams/selams-web/internal/config"
	"github.com/selams/selams-web/internal/store"
	"github.com/selams/selams-web/internal/utils"
)

func main() {
	instructor := flag.String("instructor", "", "user id set as instructor of every seeded course")
	enroll := flag.String("enroll", "", "user id enrolled in every seeded course with the sample progress")
	flag.Parse()

	cfg, err := config.Load()
	logger, lerr := utils.NewLogger(os.Getenv("APP_ENV"))
	if lerr != nil {
		panic(lerr)
	}
	defer logger.Sync() //nolint:errcheck
	if err != nil {
		logger.Fatal("seed: invalid configuration", zap.Error(err))
	}
	if cfg.DatabaseURL == "" {
		logger.Fatal("seed: DATABASE_URL is required")
	}

	st, err := store.NewGormStore(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("seed: connect database", zap.Error(err))
	}
	defer st.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	for _, c := range catalog.SampleCourses() {
		c := c
		if err := utils.Validate.Struct(&c); err != nil {
			logger.Fatal("seed: invalid sample course", zap.String("title", c.Title), zap.Any("fields", utils.FieldErrors(err)))
		}
		if *instructor != "" {
			c.InstructorID = *instructor
		}
		progress := c.Progress
		if err := st.UpsertCourse(ctx, &c); err != nil {
			logger.Fatal("seed: upsert course", zap.String("id", c.ID), zap.Error(err))
		}
		logger.Info("seed: course", zap.String("id", c.ID), zap.String("slug", c.Slug))

		if *enroll == "" {
			continue
		}
		if err := st.Enroll(ctx, c.ID, *enroll, progress); err != nil {
			logger.Fatal("seed: enroll", zap.String("id", c.ID), zap.Error(err))
		}
		done := 0
		for _, m := range c.Modules {
			for _, l := range m.Lessons {
				if !l.Completed {
					continue
				}
				if err := st.MarkCompleted(ctx, l.ID, *enroll); err != nil {
					logger.Fatal("seed: mark completed", zap.Uint("lesson", l.ID), zap.Error(err))
				}
				done++
			}
		}
		logger.Info("seed: enrolled", zap.String("course", c.ID), zap.String("user", *enroll), zap.Int("completed", done))
	}
}
