package migrate

import (
	"path/filepath"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hashicorp-forge/courier/internal/cmd/base"
)

func newCommand(fs afero.Fs) (*Command, *cli.MockUi) {
	ui := cli.NewMockUi()
	return &Command{Command: &base.Command{UI: ui, Log: hclog.NewNullLogger(), Fs: fs}}, ui
}

func TestRun_SQLite(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "courier.db")

	c, ui := newCommand(afero.NewOsFs())
	code := c.Run([]string{"-driver=sqlite", "-dsn=" + dsn})
	require.Equal(t, 0, code, ui.ErrorWriter.String())
	assert.Contains(t, ui.OutputWriter.String(), "schema version 3")

	c, ui = newCommand(afero.NewOsFs())
	code = c.Run([]string{"-driver=sqlite", "-dsn=" + dsn, "-rollback=2"})
	require.Equal(t, 0, code, ui.ErrorWriter.String())
	assert.Contains(t, ui.OutputWriter.String(), "schema version 1")
}

func TestConnection(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "courier.hcl", []byte(`
database {
  host     = "db.internal"
  port     = 5432
  user     = "courier"
  password = "secret"
  dbname   = "courier"
}
`), 0o644))

	tests := []struct {
		name       string
		args       []string
		wantDriver string
		wantDSN    string
		wantErr    string
	}{
		{
			name:       "flags",
			args:       []string{"-driver=sqlite", "-dsn=courier.db"},
			wantDriver: "sqlite",
			wantDSN:    "courier.db",
		},
		{
			name:       "config",
			args:       []string{"-config=courier.hcl"},
			wantDriver: "postgres",
			wantDSN:    "host=db.internal port=5432 user=courier password=secret dbname=courier sslmode=disable",
		},
		{
			name:    "unsupported driver",
			args:    []string{"-driver=mysql", "-dsn=x"},
			wantErr: "unsupported driver",
		},
		{
			name:    "no dsn",
			args:    []string{},
			wantErr: "-dsn",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newCommand(fs)
			require.NoError(t, c.Flags().Parse(tt.args))
			driver, dsn, err := c.connection()
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantDriver, driver)
			assert.Equal(t, tt.wantDSN, dsn)
		})
	}
}
