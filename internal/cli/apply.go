package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"airecruiter/internal/common"
	"airecruiter/internal/errors"
	"airecruiter/internal/types"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
)

const (
	choiceRetry = "Retry saving the transcript"
	choiceQuit  = "Quit"
)

var applyCmd = &cobra.Command{
	Use:   "apply [cv-file]",
	Short: "Apply with a CV and take the interview in the terminal",
	Long: `Upload a CV, then answer the assistant's questions until the interview
ends. Say "thank you" or "goodbye" to finish early. The transcript is saved
for the recruiter when the interview ends.`,
	Args: cobra.ExactArgs(1),
	RunE: runApply,
}

var applyJobFile string

func init() {
	applyCmd.Flags().StringVar(&applyJobFile, "job-file", "", "Job description file (overrides config)")
}

// interviewService is the part of the recruitment service a terminal
// interview drives
type interviewService interface {
	StartApplication(ctx context.Context, fileName string, data []byte) (types.Application, error)
	Reply(ctx context.Context, sessionID, message string) (types.TurnResult, error)
	SaveTranscript(ctx context.Context, sessionID string) (types.Session, error)
}

// terminal reads candidate input and prints assistant output
type terminal struct {
	out     io.Writer
	ask     func() (string, error)
	confirm func(items []string) (string, error)
}

func promptTerminal(out io.Writer) *terminal {
	return &terminal{
		out: out,
		ask: func() (string, error) {
			p := promptui.Prompt{
				Label: "You",
				Validate: func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("type an answer")
					}
					return nil
				},
			}
			return p.Run()
		},
		confirm: func(items []string) (string, error) {
			s := promptui.Select{Label: "The transcript was not saved", Items: items}
			_, choice, err := s.Run()
			return choice, err
		},
	}
}

func runApply(cmd *cobra.Command, args []string) error {
	cfg, logger, err := fromContext(cmd)
	if err != nil {
		return err
	}

	cvFile := args[0]
	data, err := common.NewFileProcessor(logger).ReadBytes(cvFile)
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context(), cfg, logger, appOptions{JobFile: applyJobFile})
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer a.Close()

	if a.service.JobDescription() == "" {
		logger.Warn("No job description is set, the interview will be generic")
	}

	return runInterview(cmd.Context(), a.service, promptTerminal(cmd.OutOrStdout()), filepath.Base(cvFile), data)
}

// runInterview submits the CV and loops turns until the interview ends or
// the candidate interrupts it.
func runInterview(ctx context.Context, svc interviewService, term *terminal, fileName string, data []byte) error {
	app, err := svc.StartApplication(ctx, fileName, data)
	if err != nil {
		return fmt.Errorf("failed to submit CV: %w", err)
	}
	fmt.Fprintf(term.out, "\nAssistant: %s\n\n", app.Greeting)

	for {
		message, err := term.ask()
		if isInterrupt(err) {
			fmt.Fprintln(term.out, "\nInterview left unfinished. The transcript was not saved.")
			return nil
		}
		if err != nil {
			return err
		}

		turn, err := svc.Reply(ctx, app.SessionID, message)
		if err != nil {
			if errors.TypeOf(err) == errors.ErrorTypeValidation {
				fmt.Fprintf(term.out, "%v\n", err)
				continue
			}
			return err
		}
		fmt.Fprintf(term.out, "\nAssistant: %s\n\n", turn.Reply)

		if turn.Ended {
			return finishInterview(ctx, svc, term, app.SessionID, turn.TranscriptSaved)
		}
	}
}

func finishInterview(ctx context.Context, svc interviewService, term *terminal, sessionID string, saved bool) error {
	for !saved {
		choice, err := term.confirm([]string{choiceRetry, choiceQuit})
		if isInterrupt(err) || choice == choiceQuit {
			fmt.Fprintf(term.out, "Interview finished. The transcript was not saved (session %s).\n", sessionID)
			return nil
		}
		if err != nil {
			return err
		}

		sess, err := svc.SaveTranscript(ctx, sessionID)
		if err != nil {
			fmt.Fprintf(term.out, "Saving failed: %v\n", err)
			continue
		}
		saved = sess.TranscriptSaved
	}

	fmt.Fprintln(term.out, "Interview finished. The transcript was saved for the recruiter.")
	return nil
}

func isInterrupt(err error) bool {
	return stderrors.Is(err, promptui.ErrInterrupt) || stderrors.Is(err, promptui.ErrEOF) || stderrors.Is(err, io.EOF)
}
