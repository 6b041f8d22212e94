package main

import (
	"context"
	"fmt"
	"os"

	"quizforge/internal/config"
	"quizforge/internal/database"
	"quizforge/internal/domain"
	"quizforge/internal/logger"
	"quizforge/internal/repository"
	"quizforge/internal/service"
	"quizforge/internal/util"

	"go.uber.org/zap"
)

// Seeds the question bank with a small demo set so the API is usable out of
// the box.
func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Initialize(cfg.Logger); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	log := logger.Get()

	db, err := database.ConnectDatabase(&cfg.DB)
	if err != nil {
		log.Fatal("Failed to connect question database", zap.Error(err))
	}
	defer db.Close()
	if err := database.RunMigrations(db); err != nil {
		log.Fatal("Failed to run migrations", zap.Error(err))
	}

	tags := service.NewTagService(repository.NewTagStore(), nil)
	questions := repository.NewQuestionDatabaseAdapter(db, tags)
	tags.SetQuestionRepository(questions)

	tagFile := repository.NewFileTagStore(cfg.Storage.TagsPath)
	persisted, err := tagFile.Load()
	if err != nil {
		log.Fatal("Failed to load tag hierarchy", zap.Error(err))
	}
	tags.ImportTags(persisted)
	tags.SetPersister(tagFile)

	science, err := tags.CreateTag("science", "Science questions", "#2266aa", "", nil)
	if err != nil {
		log.Fatal("Failed to create tag", zap.Error(err))
	}
	physics, err := tags.CreateTag("physics", "Physics questions", "#33aa55", science.ID, []string{"mechanics"})
	if err != nil {
		log.Fatal("Failed to create tag", zap.Error(err))
	}
	history, err := tags.CreateTag("history", "History questions", "#aa3322", "", nil)
	if err != nil {
		log.Fatal("Failed to create tag", zap.Error(err))
	}

	seed := []domain.QuestionRecord{
		{
			ID:   util.NewULID(),
			Text: "What is the SI unit of force?",
			Type: domain.MultipleChoice,
			Answers: []domain.Answer{
				{Text: "Newton", IsCorrect: true},
				{Text: "Joule"},
				{Text: "Watt"},
				{Text: "Pascal"},
			},
			TagIDs: []string{physics.ID},
		},
		{
			ID:   util.NewULID(),
			Text: "Sound travels faster in water than in air.",
			Type: domain.TrueFalse,
			Answers: []domain.Answer{
				{Text: "True", IsCorrect: true},
				{Text: "False"},
			},
			TagIDs: []string{physics.ID},
		},
		{
			ID:   util.NewULID(),
			Text: "Which of these are noble gases?",
			Type: domain.SelectAll,
			Answers: []domain.Answer{
				{Text: "Helium", IsCorrect: true},
				{Text: "Neon", IsCorrect: true},
				{Text: "Oxygen"},
				{Text: "Argon", IsCorrect: true},
			},
			TagIDs: []string{science.ID},
		},
		{
			ID:   util.NewULID(),
			Text: "In which year did World War II end?",
			Type: domain.MultipleChoice,
			Answers: []domain.Answer{
				{Text: "1943"},
				{Text: "1945", IsCorrect: true},
				{Text: "1947"},
			},
			TagIDs: []string{history.ID},
		},
	}

	ctx := context.Background()
	for i := range seed {
		if err := questions.SaveQuestion(ctx, &seed[i]); err != nil {
			log.Fatal("Failed to seed question", zap.String("text", seed[i].Text), zap.Error(err))
		}
		for _, tagID := range seed[i].TagIDs {
			if t, err := tags.GetTag(tagID); err == nil {
				tags.AdjustQuestionCount(t.Name, 1)
			}
		}
	}
	log.Info("Seeded question bank", zap.Int("questions", len(seed)))
}
