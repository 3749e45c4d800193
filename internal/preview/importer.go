package preview

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"quizblitz/internal/domain"
)

// ImportQuiz parses a plain-text quiz. The format is:
//
//	Title: Capitals
//	Description: Europe edition
//
//	What is the capital of France?
//	A) Paris *
//	B) Rome
//	C) Oslo
//	D) Bern
//	Time: 20
//
// Questions are separated by blank lines, the question text may span several
// lines, options are labelled A-D and the correct one carries a '*'.
func ImportQuiz(r io.Reader) (domain.QuizDraft, error) {
	draft := domain.QuizDraft{Questions: []domain.QuestionDraft{}}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	var block []string
	lineNo := 0
	flush := func() error {
		if len(block) == 0 {
			return nil
		}
		q, err := parseQuestionBlock(block)
		block = block[:0]
		if err != nil {
			return fmt.Errorf("question ending at line %d: %w", lineNo, err)
		}
		draft.Questions = append(draft.Questions, q)
		return nil
	}

	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), " \t\r")
		if strings.TrimSpace(line) == "" {
			if err := flush(); err != nil {
				return domain.QuizDraft{}, err
			}
			continue
		}
		if len(block) == 0 && len(draft.Questions) == 0 {
			if v, ok := headerValue(line, "title"); ok {
				draft.Title = v
				continue
			}
			if v, ok := headerValue(line, "description"); ok {
				draft.Description = v
				continue
			}
		}
		block = append(block, line)
	}
	if err := scanner.Err(); err != nil {
		return domain.QuizDraft{}, err
	}
	if err := flush(); err != nil {
		return domain.QuizDraft{}, err
	}
	if len(draft.Questions) == 0 {
		return domain.QuizDraft{}, domain.ErrEmptyImport
	}
	return draft, nil
}

func headerValue(line, key string) (string, bool) {
	name, value, ok := strings.Cut(line, ":")
	if !ok || !strings.EqualFold(strings.TrimSpace(name), key) {
		return "", false
	}
	return strings.TrimSpace(value), true
}

func parseQuestionBlock(lines []string) (domain.QuestionDraft, error) {
	q := domain.QuestionDraft{
		Options:   make([]string, 0, domain.OptionCount),
		TimeLimit: domain.DefaultTimeLimit,
	}
	var text []string
	correct := -1
	for _, line := range lines {
		if v, ok := headerValue(line, "time"); ok {
			secs, err := strconv.Atoi(strings.TrimSuffix(v, "s"))
			if err != nil || secs <= 0 {
				return q, fmt.Errorf("bad time limit %q", v)
			}
			q.TimeLimit = secs
			continue
		}
		if opt, marked, ok := optionLine(line, len(q.Options)); ok {
			if marked {
				correct = len(q.Options)
			}
			q.Options = append(q.Options, opt)
			continue
		}
		if len(q.Options) > 0 {
			return q, fmt.Errorf("unexpected line after options: %q", line)
		}
		text = append(text, line)
	}
	q.Text = strings.Join(text, "\n")
	switch {
	case q.Text == "":
		return q, fmt.Errorf("%w: missing text", domain.ErrInvalidQuestion)
	case len(q.Options) != domain.OptionCount:
		return q, fmt.Errorf("%w: need %d options, got %d", domain.ErrInvalidQuestion, domain.OptionCount, len(q.Options))
	case correct < 0:
		return q, fmt.Errorf("%w: no option marked with '*'", domain.ErrInvalidQuestion)
	}
	q.CorrectIndex = correct
	return q, nil
}

// optionLine recognises "A) text", "a. text" or "* B) text" for the option
// expected at position idx.
func optionLine(line string, idx int) (string, bool, bool) {
	if idx >= domain.OptionCount {
		return "", false, false
	}
	s := strings.TrimSpace(line)
	marked := false
	if strings.HasPrefix(s, "*") {
		marked = true
		s = strings.TrimSpace(s[1:])
	}
	if len(s) < 2 {
		return "", false, false
	}
	label := byte('A' + idx)
	if s[0] != label && s[0] != label+('a'-'A') {
		return "", false, false
	}
	if s[1] != ')' && s[1] != '.' {
		return "", false, false
	}
	s = strings.TrimSpace(s[2:])
	if strings.HasSuffix(s, "*") {
		marked = true
		s = strings.TrimSpace(strings.TrimSuffix(s, "*"))
	}
	return s, marked, true
}
