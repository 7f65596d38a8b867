package main

import "testing"

func TestCanRunWithoutGit(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want bool
	}{
		{
			name: "no args",
			args: nil,
			want: true,
		},
		{
			name: "help flag",
			args: []string{"--help"},
			want: true,
		},
		{
			name: "help shorthand",
			args: []string{"-h"},
			want: true,
		},
		{
			name: "version flag",
			args: []string{"--version"},
			want: true,
		},
		{
			name: "help subcommand",
			args: []string{"help", "run"},
			want: true,
		},
		{
			name: "version subcommand",
			args: []string{"version"},
			want: true,
		},
		{
			name: "run command",
			args: []string{"run", "task#1"},
			want: false,
		},
		{
			name: "daemon command",
			args: []string{"daemon", "--concurrency", "2"},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := canRunWithoutGit(tt.args); got != tt.want {
				t.Fatalf("canRunWithoutGit(%v) = %v, want %v", tt.args, got, tt.want)
			}
		})
	}
}
