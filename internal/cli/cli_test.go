package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"airecruiter/internal/common"
	"airecruiter/internal/config"
	"airecruiter/internal/errors"
	"airecruiter/internal/types"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func offlineConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		AI:        config.AIConfig{Provider: "offline", Model: "none"},
		Storage:   config.StorageConfig{Backend: "local", LocalDir: t.TempDir()},
		Warehouse: config.WarehouseConfig{Backend: "memory", ListLimit: 10},
		Session:   config.SessionConfig{Backend: "memory"},
		Conversation: config.ConversationConfig{
			Sentinel:     "[END OF CONVERSATION]",
			JobQueryMode: "firstLine",
			Language:     "English",
			ApologyReply: "Sorry, we hit a problem. Thank you for your time.",
		},
		App: config.AppConfig{DefaultFormat: "text", SupportedFormats: []string{"json", "text", "markdown"}},
	}
}

func TestNewAppDegradesWhenModelsAreUnavailable(t *testing.T) {
	ctx := context.Background()
	cfg := offlineConfig(t)

	a, err := newApp(ctx, cfg, errors.Discard(), appOptions{})
	require.NoError(t, err)
	defer a.Close()

	models := a.models()
	require.Len(t, models, 3)
	for _, m := range models {
		assert.False(t, m.GetModelInfo(ctx).Available, m.Operation())
	}

	app, err := a.service.StartApplication(ctx, "cv.txt", []byte("Jane Doe\nGo developer"))
	require.NoError(t, err)
	assert.Contains(t, app.Profile.Summary, "AI analysis failed")

	turn, err := a.service.Reply(ctx, app.SessionID, "Hello")
	require.NoError(t, err)
	assert.True(t, turn.Ended)
	assert.True(t, turn.TranscriptSaved)
	assert.Equal(t, cfg.Conversation.ApologyReply, turn.Reply)

	list, err := a.service.ListCandidates(ctx)
	require.NoError(t, err)
	assert.Len(t, list.Candidates, 1)
}

func TestNewAppJobFileOverride(t *testing.T) {
	cfg := offlineConfig(t)
	jobFile := filepath.Join(t.TempDir(), "job.txt")
	require.NoError(t, os.WriteFile(jobFile, []byte("Senior Go Engineer\nRemote"), 0600))

	a, err := newApp(context.Background(), cfg, errors.Discard(), appOptions{JobFile: jobFile})
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, "Senior Go Engineer\nRemote", a.service.JobDescription())
}

func TestNewAppRejectsUnknownSessionBackend(t *testing.T) {
	cfg := offlineConfig(t)
	cfg.Session.Backend = "etcd"

	_, err := newApp(context.Background(), cfg, errors.Discard(), appOptions{})
	assert.Equal(t, errors.ErrorTypeConfig, errors.TypeOf(err))
}

func TestContextHelpers(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())
	_, _, err := fromContext(cmd)
	assert.Error(t, err)

	cfg := offlineConfig(t)
	ctx := context.WithValue(context.Background(), configKey, cfg)
	ctx = context.WithValue(ctx, loggerKey, errors.Discard())
	cmd.SetContext(ctx)

	gotCfg, logger, err := fromContext(cmd)
	require.NoError(t, err)
	assert.Same(t, cfg, gotCfg)
	assert.NotNil(t, logger)
}

func TestResolveOutputFormat(t *testing.T) {
	cfg := offlineConfig(t)
	cmd := &cobra.Command{}
	cmd.SetContext(context.WithValue(context.Background(), configKey, cfg))

	var out common.CommandConfig
	require.NoError(t, resolveOutputFormat(&out)(cmd, nil))
	assert.Equal(t, "text", out.OutputFormat)

	out.OutputFormat = "yaml"
	assert.Error(t, resolveOutputFormat(&out)(cmd, nil))
}

func TestApplyServeFlags(t *testing.T) {
	cfg := offlineConfig(t)
	cfg.Server.Port = "8080"
	cfg.Server.Host = "0.0.0.0"

	flags := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	addServeFlags(flags)
	require.NoError(t, flags.Parse([]string{"--port", "9090", "--job-file", "/tmp/job.txt"}))

	applyServeFlags(flags, cfg)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "/tmp/job.txt", cfg.JobDescription.File)
}

func TestVersionCommand(t *testing.T) {
	var buf bytes.Buffer
	versionCmd.SetOut(&buf)
	versionCmd.Run(versionCmd, nil)
	assert.Contains(t, buf.String(), "airecruiter "+Version)
}

type fakeInterview struct {
	replies   []types.TurnResult
	saveFails int
	messages  []string
	saves     int
}

func (f *fakeInterview) StartApplication(ctx context.Context, fileName string, data []byte) (types.Application, error) {
	return types.Application{SessionID: "s-1", Greeting: "Hi, tell me about your last role."}, nil
}

func (f *fakeInterview) Reply(ctx context.Context, sessionID, message string) (types.TurnResult, error) {
	f.messages = append(f.messages, message)
	turn := f.replies[0]
	f.replies = f.replies[1:]
	return turn, nil
}

func (f *fakeInterview) SaveTranscript(ctx context.Context, sessionID string) (types.Session, error) {
	f.saves++
	if f.saves <= f.saveFails {
		return types.Session{}, errors.NewUnavailableError(errors.ErrCodeWarehouseWriteFailed, "warehouse down", nil)
	}
	return types.Session{ID: sessionID, Ended: true, TranscriptSaved: true}, nil
}

func scriptedTerminal(out io.Writer, answers []string, choices []string) *terminal {
	return &terminal{
		out: out,
		ask: func() (string, error) {
			if len(answers) == 0 {
				return "", promptui.ErrInterrupt
			}
			a := answers[0]
			answers = answers[1:]
			return a, nil
		},
		confirm: func([]string) (string, error) {
			if len(choices) == 0 {
				return "", promptui.ErrInterrupt
			}
			c := choices[0]
			choices = choices[1:]
			return c, nil
		},
	}
}

func TestRunInterview(t *testing.T) {
	ctx := context.Background()

	t.Run("ends with saved transcript", func(t *testing.T) {
		svc := &fakeInterview{replies: []types.TurnResult{
			{Reply: "What did you build?"},
			{Reply: "Thanks, we will be in touch.", Ended: true, TranscriptSaved: true},
		}}
		var out bytes.Buffer

		err := runInterview(ctx, svc, scriptedTerminal(&out, []string{"I was a Go dev", "thank you"}, nil), "cv.pdf", nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"I was a Go dev", "thank you"}, svc.messages)
		assert.Contains(t, out.String(), "Hi, tell me about your last role.")
		assert.Contains(t, out.String(), "transcript was saved")
		assert.Zero(t, svc.saves)
	})

	t.Run("retries a failed save", func(t *testing.T) {
		svc := &fakeInterview{
			replies:   []types.TurnResult{{Reply: "Goodbye", Ended: true}},
			saveFails: 1,
		}
		var out bytes.Buffer

		err := runInterview(ctx, svc, scriptedTerminal(&out, []string{"bye"}, []string{choiceRetry, choiceRetry}), "cv.pdf", nil)
		require.NoError(t, err)
		assert.Equal(t, 2, svc.saves)
		assert.Contains(t, out.String(), "Saving failed")
		assert.Contains(t, out.String(), "transcript was saved")
	})

	t.Run("quit leaves transcript unsaved", func(t *testing.T) {
		svc := &fakeInterview{replies: []types.TurnResult{{Reply: "Goodbye", Ended: true}}}
		var out bytes.Buffer

		err := runInterview(ctx, svc, scriptedTerminal(&out, []string{"bye"}, []string{choiceQuit}), "cv.pdf", nil)
		require.NoError(t, err)
		assert.Zero(t, svc.saves)
		assert.Contains(t, out.String(), "not saved (session s-1)")
	})

	t.Run("interrupt stops the loop", func(t *testing.T) {
		svc := &fakeInterview{}
		var out bytes.Buffer

		err := runInterview(ctx, svc, scriptedTerminal(&out, nil, nil), "cv.pdf", nil)
		require.NoError(t, err)
		assert.Empty(t, svc.messages)
		assert.True(t, strings.Contains(out.String(), "unfinished"))
	})
}
