package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/property-cli/internal/form"
	"github.com/sells-group/property-cli/pkg/propertyapi"
)

const tagSuggestLimit = 8

var tagsCmd = &cobra.Command{
	Use:   "tags [prefix]",
	Short: "Suggest property tags",
	Long: "With a prefix, prints matching tags. With --interactive, reads the tag field as it is " +
		"typed from stdin, one state per line, and prints suggestions for the latest state only.",
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		interactive, _ := cmd.Flags().GetBool("interactive")
		if !interactive && len(args) == 0 {
			return eris.New("a prefix is required unless --interactive is set")
		}

		env, err := initApp(ctx, cmd.Name())
		if err != nil {
			return err
		}
		defer env.Close()
		if err := env.requireUser(ctx); err != nil {
			return err
		}

		if interactive {
			delay := time.Duration(cfg.Form.SuggestDebounceMS) * time.Millisecond
			return suggestInteractive(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), env.API.Property, delay)
		}

		tags, err := env.API.Property.SuggestTags(ctx, args[0], tagSuggestLimit)
		if err != nil {
			return eris.New(propertyapi.Message(err, "could not load suggestions"))
		}
		for _, t := range tags {
			fmt.Fprintln(cmd.OutOrStdout(), t)
		}
		return nil
	},
}

// suggestInteractive feeds each input line to a debounced suggester and
// waits until the lookup for the final line has been delivered.
func suggestInteractive(ctx context.Context, r io.Reader, w io.Writer, api form.TagAPI, delay time.Duration) error {
	var (
		mu        sync.Mutex
		want, got uint64
		once      sync.Once
	)
	finished := make(chan struct{})
	done := func() { once.Do(func() { close(finished) }) }

	sugg := form.NewTagSuggester(api, delay, tagSuggestLimit, func(s form.Suggestion) {
		mu.Lock()
		defer mu.Unlock()
		switch {
		case s.Err != nil:
			fmt.Fprintf(w, "%s: %s\n", s.Prefix, propertyapi.Message(s.Err, s.Err.Error()))
		case len(s.Tags) == 0:
			fmt.Fprintf(w, "%s: no suggestions\n", s.Prefix)
		default:
			fmt.Fprintf(w, "%s: %s\n", s.Prefix, strings.Join(s.Tags, ", "))
		}
		got = s.Seq
		if want != 0 && got == want {
			done()
		}
	})
	defer sugg.Stop()

	sc := bufio.NewScanner(r)
	var last uint64
	for sc.Scan() {
		last = sugg.Input(ctx, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return eris.Wrap(err, "read input")
	}
	if last == 0 {
		return nil
	}

	mu.Lock()
	want = sugg.Latest()
	if got == want {
		done()
	}
	mu.Unlock()

	select {
	case <-finished:
		zap.L().Debug("tags: suggestions delivered",
			zap.Uint64("seq", want),
			zap.Uint64("stale", sugg.Dropped()),
		)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func init() {
	tagsCmd.Flags().BoolP("interactive", "i", false, "read the tag field from stdin as it is typed")
	rootCmd.AddCommand(tagsCmd)
}
