package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/NicolasFive/VideoTingYi/internal/assemblyai"
	"github.com/NicolasFive/VideoTingYi/internal/subtitle"
)

var errNoUtterances = errors.New("transcript has no utterances")

// readUtterances accepts either a bare utterance array or a full AssemblyAI
// transcript object.
func readUtterances(path string) ([]subtitle.Utterance, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read transcript: %w", err)
	}
	data = bytes.TrimSpace(data)

	var utterances []subtitle.Utterance
	if len(data) > 0 && data[0] == '[' {
		if err := json.Unmarshal(data, &utterances); err != nil {
			return nil, fmt.Errorf("decode utterances: %w", err)
		}
	} else {
		var tr assemblyai.Transcript
		if err := json.Unmarshal(data, &tr); err != nil {
			return nil, fmt.Errorf("decode transcript: %w", err)
		}
		utterances = tr.Utterances
	}

	if len(utterances) == 0 {
		return nil, fmt.Errorf("%s: %w", path, errNoUtterances)
	}
	return utterances, nil
}

func readFragments(path string) ([][]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fragments: %w", err)
	}
	var fragments [][]string
	if err := json.Unmarshal(data, &fragments); err != nil {
		return nil, fmt.Errorf("decode fragments: %w", err)
	}
	return fragments, nil
}

// sourceFragments uses each sentence's own text as its single fragment.
func sourceFragments(texts []string) [][]string {
	out := make([][]string, len(texts))
	for i, t := range texts {
		out[i] = []string{t}
	}
	return out
}
