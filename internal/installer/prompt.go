package installer

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// LinePrompter asks yes/no questions on a line-oriented terminal. An empty
// answer means yes; end of input means no.
type LinePrompter struct {
	In  io.Reader
	Out io.Writer

	reader *bufio.Reader
}

// Confirm implements Prompter.
func (p *LinePrompter) Confirm(question string) (bool, error) {
	if p.reader == nil {
		p.reader = bufio.NewReader(p.In)
	}
	for {
		fmt.Fprintf(p.Out, "  ? %s [Y/n] ", question)
		line, err := p.reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return false, err
		}
		answer := strings.ToLower(strings.TrimSpace(line))
		switch answer {
		case "", "y", "yes":
			if errors.Is(err, io.EOF) && line == "" {
				fmt.Fprintln(p.Out)
				return false, nil
			}
			return true, nil
		case "n", "no":
			return false, nil
		}
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(p.Out)
			return false, nil
		}
		fmt.Fprintln(p.Out, "  please answer y or n")
	}
}
