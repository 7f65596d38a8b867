// Package app provides the dependency injection container for the application.
package app

import (
	"io"
	"path/filepath"
	"sync"
	"time"

	"github.com/runoshun/beanloop/internal/domain"
	"github.com/runoshun/beanloop/internal/infra/config"
	"github.com/runoshun/beanloop/internal/infra/events"
	"github.com/runoshun/beanloop/internal/infra/git"
	"github.com/runoshun/beanloop/internal/infra/logging"
	"github.com/runoshun/beanloop/internal/infra/notify"
	"github.com/runoshun/beanloop/internal/infra/rootstate"
	"github.com/runoshun/beanloop/internal/infra/runner"
	"github.com/runoshun/beanloop/internal/infra/runstate"
	"github.com/runoshun/beanloop/internal/infra/tracker"
	"github.com/runoshun/beanloop/internal/infra/watch"
	"github.com/runoshun/beanloop/internal/usecase"
)

// Paths holds the resolved repository locations.
type Paths struct {
	RepoRoot string // Root directory of the git repository
	GitDir   string // Path to .git directory
	LoopDir  string // Path to .git/beanloop directory
}

// newPaths creates a new Paths from the git client.
func newPaths(gitClient *git.Client) Paths {
	repoRoot := gitClient.RepoRoot()
	return Paths{
		RepoRoot: repoRoot,
		GitDir:   gitClient.GitDir(),
		LoopDir:  domain.RepoLoopDir(repoRoot),
	}
}

// Container provides dependency injection for the application.
// It holds all port implementations and provides factory methods for use
// cases. Commands may adjust Cfg after New and before calling a factory;
// flag overrides work that way.
type Container struct {
	// Ports (interfaces bound to implementations)
	Tasks  domain.TaskStore
	VC     domain.VersionControl
	Roots  domain.RootStore
	Pause  domain.PauseFlag
	Runner domain.AgentRunner
	Events domain.EventSink
	Clock  domain.Clock
	Logger domain.Logger

	// RunState folds loop events into the daemon state file. The daemon
	// emits into it alongside Events; status reads it back.
	RunState *runstate.Store

	// Configuration
	Cfg   *domain.Config
	Paths Paths

	// gate serializes working-tree operations across controller slots.
	gate *sync.Mutex
}

// New creates a new Container by detecting the git repository from the given
// directory and loading the merged configuration.
func New(dir string) (*Container, error) {
	gitClient, err := git.NewClient(dir)
	if err != nil {
		return nil, err
	}
	paths := newPaths(gitClient)

	// A broken config file is an error here, not a silent fallback: the
	// agent command templates come from it.
	cfg, err := config.NewLoader(paths.RepoRoot).Load()
	if err != nil {
		return nil, err
	}

	log := logging.New(paths.LoopDir, logging.ParseLevel(cfg.Log.Level))

	roots, err := rootstate.New(paths.RepoRoot)
	if err != nil {
		return nil, err
	}

	agentRunner := runner.New(cfg)
	agentRunner.Output = log.TaskWriter

	return &Container{
		Tasks:    tracker.NewClient(paths.RepoRoot, cfg.Tracker),
		VC:       gitClient,
		Roots:    roots,
		Pause:    runstate.NewFlag(paths.LoopDir),
		Runner:   agentRunner,
		Events:   events.NewFileSink(paths.LoopDir),
		Clock:    domain.RealClock{},
		Logger:   log,
		RunState: runstate.New(paths.LoopDir),
		Cfg:      cfg,
		Paths:    paths,
		gate:     &sync.Mutex{},
	}, nil
}

// NewWithDeps creates a new Container with custom dependencies for testing.
func NewWithDeps(
	cfg *domain.Config,
	paths Paths,
	tasks domain.TaskStore,
	vc domain.VersionControl,
	roots domain.RootStore,
	pause domain.PauseFlag,
	agentRunner domain.AgentRunner,
	sink domain.EventSink,
	clock domain.Clock,
	logger domain.Logger,
) *Container {
	return &Container{
		Tasks:    tasks,
		VC:       vc,
		Roots:    roots,
		Pause:    pause,
		Runner:   agentRunner,
		Events:   sink,
		Clock:    clock,
		Logger:   logger,
		RunState: runstate.New(paths.LoopDir),
		Cfg:      cfg,
		Paths:    paths,
		gate:     &sync.Mutex{},
	}
}

// Close releases held resources, currently the log files.
func (c *Container) Close() error {
	if closer, ok := c.Logger.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// Notifier returns the notifier for the configured command, or a no-op one
// when silenced or unconfigured.
func (c *Container) Notifier(silent bool) domain.Notifier {
	if silent || c.Cfg.Notify.Command == "" {
		return notify.Nop{}
	}
	return notify.NewCommand(c.Cfg.Notify.Command, c.Logger)
}

// Watcher returns a tracker watcher for the configured data directory.
func (c *Container) Watcher() *watch.Watcher {
	interval := time.Duration(c.Cfg.Daemon.PollIntervalSeconds) * time.Second
	dataDir := filepath.Join(c.Paths.RepoRoot, c.Cfg.Tracker.DataDir)
	return watch.New(dataDir, interval, c.Logger)
}

// UseCase factory methods

// ResolveRootUseCase returns a new ResolveRoot use case.
func (c *Container) ResolveRootUseCase() *usecase.ResolveRoot {
	return usecase.NewResolveRoot(c.Tasks, c.Roots, c.Clock, c.Logger)
}

// ShowNextUseCase returns a new ShowNext use case.
func (c *Container) ShowNextUseCase() *usecase.ShowNext {
	return usecase.NewShowNext(c.Tasks, c.ResolveRootUseCase())
}

// executeTaskUseCase wires one task executor around the shared workspace
// gate. sink receives the attempt's loop events.
func (c *Container) executeTaskUseCase(sink domain.EventSink) *usecase.ExecuteTask {
	open := usecase.NewOpenWorkspace(c.Tasks, c.VC, c.gate, c.Logger, c.Cfg.Trunk)
	reconcile := usecase.NewReconcileTask(c.Tasks, c.VC, c.gate, c.Logger)
	return usecase.NewExecuteTask(c.Tasks, c.VC, c.Runner, c.Clock, c.Logger, sink, c.gate, open, reconcile, c.Cfg, c.Paths.RepoRoot)
}

// RunLoopUseCase returns a new RunLoop use case emitting into sink.
func (c *Container) RunLoopUseCase(sink domain.EventSink, notifier domain.Notifier) *usecase.RunLoop {
	return usecase.NewRunLoop(c.Tasks, c.ResolveRootUseCase(), c.executeTaskUseCase(sink), c.Pause, notifier, sink, c.Clock, c.Logger)
}

// RunDaemonUseCase returns a new RunDaemon use case emitting into sink and
// woken by wake.
func (c *Container) RunDaemonUseCase(sink domain.EventSink, notifier domain.Notifier, wake <-chan struct{}) *usecase.RunDaemon {
	return usecase.NewRunDaemon(c.Tasks, c.ResolveRootUseCase(), c.executeTaskUseCase(sink), c.Pause, notifier, sink, c.Clock, c.Logger, wake)
}
