package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lensview/lensview/internal/config"
	"github.com/lensview/lensview/internal/domain"
	"github.com/lensview/lensview/internal/logger"
	"github.com/lensview/lensview/internal/session"
	"github.com/lensview/lensview/internal/state"
)

// connectionFlags holds the per-invocation connection parameters shared
// by the browsing verbs.
type connectionFlags struct {
	kind       string
	host       string
	port       int
	user       string
	keyPath    string
	passphrase string
	repoURL    string
	branch     string
	staging    string
}

func (f *connectionFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.kind, "kind", string(domain.BackendRemoteFS), "backend kind: remote-filesystem or repository-mirror")
	cmd.Flags().StringVar(&f.host, "host", "", "SFTP host")
	cmd.Flags().IntVar(&f.port, "port", 22, "SFTP port")
	cmd.Flags().StringVar(&f.user, "user", "", "SFTP username")
	cmd.Flags().StringVar(&f.keyPath, "key", "", "path to the private key file")
	cmd.Flags().StringVar(&f.passphrase, "passphrase", "", "passphrase for the private key")
	cmd.Flags().StringVar(&f.repoURL, "repo", "", "repository URL for the mirror backend")
	cmd.Flags().StringVar(&f.branch, "branch", "main", "branch for the mirror backend")
	cmd.Flags().StringVar(&f.staging, "staging", "", "staging path override for the mirror backend")
}

func (f *connectionFlags) descriptor(cfg *config.Config) (domain.ConnectionDescriptor, error) {
	kind, err := domain.ParseBackendKind(f.kind)
	if err != nil {
		return domain.ConnectionDescriptor{}, err
	}

	desc := domain.ConnectionDescriptor{Kind: kind}
	switch kind {
	case domain.BackendRemoteFS:
		desc.Host = f.host
		desc.Port = f.port
		desc.Username = f.user
	case domain.BackendRepoMirror:
		desc.RepoURL = f.repoURL
		desc.Branch = f.branch
		desc.StagingPath = f.staging
		if desc.StagingPath == "" {
			desc.StagingPath = cfg.Staging.Path
		}
	}
	return desc, desc.Validate()
}

func (f *connectionFlags) keyMaterial() ([]byte, error) {
	if f.keyPath == "" {
		return nil, nil
	}
	material, err := os.ReadFile(config.ExpandPath(f.keyPath))
	if err != nil {
		return nil, fmt.Errorf("%w: read key file: %v", domain.ErrMalformedKey, err)
	}
	return material, nil
}

// withSession loads config, connects, runs fn and disconnects.
func withSession(ctx context.Context, flags *connectionFlags, fn func(ctx context.Context, cfg *config.Config, mgr *session.Manager) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	desc, err := flags.descriptor(cfg)
	if err != nil {
		return err
	}
	material, err := flags.keyMaterial()
	if err != nil {
		return err
	}

	history, err := state.NewManager(cfg.DataDir)
	if err != nil {
		return err
	}
	defer history.Close()

	mgr := session.NewManager(session.Options{
		MaxTransferBytes: cfg.MaxTransferBytes(),
		DialTimeout:      cfg.DialTimeout(),
		ThumbnailDim:     cfg.Engine.ThumbnailMaxDim,
		CacheBudget:      cfg.ThumbnailCacheBytes(),
		History:          history,
		Log:              logger.Get(),
	})
	defer mgr.Close()

	if err := mgr.Connect(ctx, desc, material, flags.passphrase); err != nil {
		return err
	}
	return fn(ctx, cfg, mgr)
}
