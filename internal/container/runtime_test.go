// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package container

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeExecutor answers LookPath and RunSilent from tables and delegates
// RunPiped to a function.
type fakeExecutor struct {
	bins     map[string]bool
	commands map[string]bool
	piped    func(name string, args []string, stdin io.Reader, stdout io.Writer) error
	lastArgs []string
}

func (f *fakeExecutor) LookPath(file string) (string, error) {
	if f.bins[file] {
		return "/usr/bin/" + file, nil
	}
	return "", errors.New("not found: " + file)
}

func (f *fakeExecutor) RunSilent(_ context.Context, name string, args ...string) error {
	key := name + " " + strings.Join(args, " ")
	if f.commands[key] {
		return nil
	}
	return errors.New("command failed: " + key)
}

func (f *fakeExecutor) RunPiped(_ context.Context, name string, args []string, stdin io.Reader, stdout io.Writer) error {
	f.lastArgs = append([]string{name}, args...)
	if f.piped != nil {
		return f.piped(name, args, stdin, stdout)
	}
	return nil
}

func TestDetectRuntime(t *testing.T) {
	tests := []struct {
		name     string
		exec     *fakeExecutor
		wantName string
		wantErr  bool
	}{
		{
			name:     "docker available",
			exec:     &fakeExecutor{bins: map[string]bool{"docker": true}, commands: map[string]bool{"docker info": true}},
			wantName: "docker",
		},
		{
			name:     "podman fallback",
			exec:     &fakeExecutor{bins: map[string]bool{"podman": true}, commands: map[string]bool{"podman info": true}},
			wantName: "podman",
		},
		{
			name:     "docker on PATH but not operational",
			exec:     &fakeExecutor{bins: map[string]bool{"docker": true, "podman": true}, commands: map[string]bool{"podman info": true}},
			wantName: "podman",
		},
		{
			name:    "neither available",
			exec:    &fakeExecutor{},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt, err := detectRuntime(context.Background(), tt.exec)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "no container runtime available")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, rt.Name())
		})
	}
}

func TestImageExists(t *testing.T) {
	exec := &fakeExecutor{commands: map[string]bool{"podman image exists markitdown:latest": true}}
	rts := candidates(exec)
	docker, podman := rts[0], rts[1]

	assert.NoError(t, podman.ImageExists(context.Background(), "markitdown:latest"))

	err := docker.ImageExists(context.Background(), "markitdown:latest")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "markitdown:latest")
}

func TestRun(t *testing.T) {
	exec := &fakeExecutor{
		piped: func(_ string, _ []string, stdin io.Reader, stdout io.Writer) error {
			data, _ := io.ReadAll(stdin)
			_, err := stdout.Write([]byte("text of " + string(data)))
			return err
		},
	}
	docker := candidates(exec)[0]

	var out bytes.Buffer
	err := docker.Run(context.Background(), "markitdown:latest", strings.NewReader("group_1.pdf"), &out)
	require.NoError(t, err)
	assert.Equal(t, "text of group_1.pdf", out.String())
	assert.Equal(t, []string{"docker", "run", "--rm", "-i", "--network", "none", "markitdown:latest"}, exec.lastArgs)
}

func TestRun_Failure(t *testing.T) {
	exec := &fakeExecutor{
		piped: func(string, []string, io.Reader, io.Writer) error {
			return errors.New("exit status 1")
		},
	}
	err := candidates(exec)[1].Run(context.Background(), "markitdown:latest", strings.NewReader(""), io.Discard)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "podman")
}
