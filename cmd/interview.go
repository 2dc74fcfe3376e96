package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"prepai-go/internal/client"
	"prepai-go/internal/config"
	"prepai-go/internal/interview"
	logger "prepai-go/internal/logging"
	"prepai-go/internal/media"
	"prepai-go/internal/models"
	"prepai-go/internal/tui"
)

type interviewFlags struct {
	company string
	track   string
	shuffle bool
	limit   int
	muted   bool
	rate    float64
	noSave  bool
	list    bool
}

func newInterviewCmd(projectRoot *string) *cobra.Command {
	var f interviewFlags

	c := &cobra.Command{
		Use:   "interview",
		Short: "Run a spoken mock interview in the terminal",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInterview(cmd, *projectRoot, f)
		},
	}
	c.Flags().StringVar(&f.company, "company", "", "company whose questions to ask")
	c.Flags().StringVar(&f.track, "track", "", "role title whose questions to ask")
	c.Flags().BoolVar(&f.shuffle, "shuffle", false, "ask the questions in random order")
	c.Flags().IntVar(&f.limit, "limit", 0, "ask at most this many questions")
	c.Flags().BoolVar(&f.muted, "muted", false, "show questions without speaking them")
	c.Flags().Float64Var(&f.rate, "rate", 0, "speech rate between 0.6 and 1.6")
	c.Flags().BoolVar(&f.noSave, "no-save", false, "do not store the result in the server history")
	c.Flags().BoolVar(&f.list, "list", false, "list the available tracks and exit")
	return c
}

func runInterview(cmd *cobra.Command, projectRoot string, f interviewFlags) error {
	conf, err := config.Load(projectRoot)
	if err != nil {
		return err
	}

	// The terminal belongs to the UI, so logs only go to files.
	logConf := conf.Logging
	logConf.Console = false
	log, err := logger.Init(projectRoot, logConf)
	if err != nil {
		return err
	}
	defer log.Sync()

	bank, err := models.LoadQuestionBank(resolvePath(projectRoot, conf.Interview.QuestionsFile))
	if err != nil {
		log.Error("Failed to load question bank", zap.Error(err))
		return err
	}
	if f.list {
		for _, t := range bank.Tracks {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%d questions\n", t.Company, t.Title, len(t.Questions))
		}
		return nil
	}

	track, err := bank.Find(f.company, f.track)
	if err != nil {
		return err
	}
	questions := prepareQuestions(track.Questions, conf.Interview.DefaultSuggestedSec, f.shuffle, f.limit)

	voice := interview.NewVoice(media.NewSynthesizer(conf.Interview.Synthesizer))
	if conf.Interview.Muted || f.muted {
		voice.Mute()
	}
	rate := conf.Interview.SpeechRate
	if f.rate > 0 {
		rate = f.rate
	}

	recorder := interview.NewRecorder(media.NewSoxSource(conf.Interview.RecorderCommand))
	api := client.New(conf.Gateway)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	var program *tea.Program
	orch := interview.NewOrchestrator(questions, voice, recorder, api, api, interview.Options{
		Company:         track.Company,
		Title:           track.Title,
		StartCountdown:  conf.Interview.StartCountdown,
		AnswerCountdown: conf.Interview.AnswerCountdown,
		Tick:            conf.Interview.Tick,
		SpeechRate:      rate,
		Logger:          log,
		OnChange: func(s interview.Snapshot) {
			program.Send(tui.SnapshotMsg(s))
		},
	})

	opts := tui.Options{Company: track.Company, Title: track.Title, Cancel: cancel}
	if !f.noSave {
		opts.Save = saveFunc(api, track, log)
	}
	program = tea.NewProgram(tui.NewModel(orch, opts), tea.WithAltScreen())

	done := make(chan struct{})
	go func() {
		defer close(done)
		err := orch.Run(ctx)
		if err != nil && ctx.Err() == nil {
			log.Error("Interview stopped", zap.Error(err))
		}
		program.Send(tui.DoneMsg{Err: err})
	}()

	_, err = program.Run()
	cancel()
	<-done
	voice.Wait()
	return err
}

func prepareQuestions(qs []interview.Question, defaultSec int, shuffle bool, limit int) []interview.Question {
	if shuffle {
		qs = models.ShuffleQuestions(qs)
	} else {
		qs = append([]interview.Question(nil), qs...)
	}
	if limit > 0 && limit < len(qs) {
		qs = qs[:limit]
	}
	for i := range qs {
		if qs[i].SuggestedTimeSec <= 0 {
			qs[i].SuggestedTimeSec = defaultSec
		}
	}
	return qs
}

func saveFunc(api *client.Client, track *models.Track, log *zap.Logger) tui.SaveFunc {
	return func(ctx context.Context, snap interview.Snapshot) (string, error) {
		sub := models.InterviewSubmission{
			Company: track.Company,
			Title:   track.Title,
			Answers: snap.Answers,
			Result:  snap.Result,
		}
		if snap.EvaluationErr != nil {
			sub.EvaluationError = snap.EvaluationErr.Error()
		}
		id, err := api.SaveInterview(ctx, sub)
		if err != nil {
			log.Warn("Failed to save interview to history", zap.Error(err))
			return "", err
		}
		log.Info("Interview saved to history", zap.String("interviewID", id))
		return id, nil
	}
}

func resolvePath(root, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}
