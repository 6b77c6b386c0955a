package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/TFMV/campaignqa/pkg/errors"
	"github.com/TFMV/campaignqa/pkg/handlers"
)

// REPL commands.
const (
	adviseCommand = "/advise"
	quitCommand   = "/quit"
	exitCommand   = "/exit"
)

const chatBanner = "Ask a question about your email campaigns (e.g. campaign stats, advice, or tips).\n" +
	"Type \"/advise <subject line>\" for subject line suggestions and /quit to leave."

// runChat reads one interaction per line until EOF, /quit or ctx ends.
// Failed interactions are printed and the loop continues.
func runChat(ctx context.Context, h handlers.InteractionHandler, in io.Reader, out io.Writer, r *renderer) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	fmt.Fprintln(out, chatBanner)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case line == quitCommand || line == exitCommand:
			return nil
		case line == adviseCommand || strings.HasPrefix(line, adviseCommand+" "):
			advice, err := h.Advise(ctx, strings.TrimPrefix(line, adviseCommand))
			if err != nil {
				printError(out, err)
				continue
			}
			r.Advice(advice)
		default:
			answer, err := h.Ask(ctx, line)
			if err != nil {
				printError(out, err)
				continue
			}
			r.Answer(answer)
			answer.Release()
		}
	}
}

func printError(out io.Writer, err error) {
	fmt.Fprintf(out, "Error [%s]: %s\n", errors.GetCode(err), errors.GetMessage(err))
}
