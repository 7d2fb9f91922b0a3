// Package manifest implements the root descriptor every dump writes and
// every load reads first: the artifact list, chunk ranges, applied
// options, and the dump_complete flag that gates a safe load.
package manifest

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/DevSingh98/mysql-shell/internal/options"
	"github.com/DevSingh98/mysql-shell/internal/shellerr"
	"github.com/DevSingh98/mysql-shell/internal/storage"
)

// schemaVersion is bumped when the manifest document shape changes in a
// way old loaders cannot read; loaders refuse a manifest with a newer
// major version than they understand.
const schemaVersion = 1

// ArtifactRole mirrors spec.md §3's Artifact role enum.
type ArtifactRole string

const (
	RoleDDLGlobal  ArtifactRole = "ddl-global"
	RoleDDLSchema  ArtifactRole = "ddl-schema"
	RoleDDLTable   ArtifactRole = "ddl-table"
	RoleDDLView    ArtifactRole = "ddl-view"
	RoleDDLRoutine ArtifactRole = "ddl-routine"
	RoleDDLTrigger ArtifactRole = "ddl-trigger"
	RoleDDLEvent   ArtifactRole = "ddl-event"
	RoleGrants     ArtifactRole = "grants"
	RoleDataChunk  ArtifactRole = "data-chunk"
	RoleMetadata   ArtifactRole = "metadata"
	RoleManifest   ArtifactRole = "manifest"
	RoleProgress   ArtifactRole = "progress"
)

// Artifact describes one file the dump produced.
type Artifact struct {
	Path        string       `json:"path"`
	Role        ArtifactRole `json:"role"`
	Codec       string       `json:"codec"`
	Size        int64        `json:"size"`
	Integrity   string       `json:"integrity,omitempty"`
	ParURL      string       `json:"par_url,omitempty"`
	ParExpires  *time.Time   `json:"par_expires,omitempty"`
}

// ChunkRange records one table's planned chunk boundaries, so the loader
// can reconstruct its plan without re-deriving it from the data files.
type ChunkRange struct {
	Schema     string `json:"schema"`
	Table      string `json:"table"`
	ChunkIndex int    `json:"chunk_index"`
	Path       string `json:"path"`
}

// TableEntry lists a dumped table's chunk ranges.
type TableEntry struct {
	Schema string       `json:"schema"`
	Table  string       `json:"table"`
	Chunks []ChunkRange `json:"chunks"`
}

// Document is the root manifest (`@.json` or `@.manifest.json`).
type Document struct {
	SchemaVersion int    `json:"schema_version"`
	ToolVersion   string `json:"tool_version"`
	ServerVersion string `json:"server_version"`

	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`

	Ocimds        bool                       `json:"ocimds"`
	Compatibility []options.CompatibilityFlag `json:"compatibility,omitempty"`
	OptionsEcho   map[string]any             `json:"options,omitempty"`

	Artifacts []Artifact   `json:"artifacts"`
	Tables    []TableEntry `json:"tables"`

	DumpComplete bool `json:"dump_complete"`
}

// Builder accumulates a Document across a dump run and commits it to
// storage. Its methods lock an internal mutex, so dump workers may add
// artifacts concurrently as their chunks complete; in OCI PAR manifest
// mode each AddArtifact also commits the document.
type Builder struct {
	mu   sync.Mutex
	doc  Document
	path string

	backend     storage.Backend
	parBackend  parCreator // non-nil only in ociParManifest mode
	parExpire   time.Duration
}

// parCreator is the subset of internal/storage/oci.Backend a PAR manifest
// needs; declared locally so this package doesn't import the oci backend
// directly (backend selection stays in cmd/, per the registry pattern).
type parCreator interface {
	CreatePAR(ctx context.Context, name string, expires time.Time) (string, error)
}

// NewBuilder starts a manifest for a dump beginning now.
func NewBuilder(backend storage.Backend, path, toolVersion, serverVersion string, ocimds bool, compat []options.CompatibilityFlag, optionsEcho map[string]any, startedAt time.Time) *Builder {
	return &Builder{
		backend: backend,
		path:    path,
		doc: Document{
			SchemaVersion: schemaVersion,
			ToolVersion:   toolVersion,
			ServerVersion: serverVersion,
			StartedAt:     startedAt,
			Ocimds:        ocimds,
			Compatibility: compat,
			OptionsEcho:   optionsEcho,
		},
	}
}

// EnablePARMode switches the builder into append-as-you-go PAR manifest
// mode: every AddArtifact call also mints a pre-authenticated request for
// the artifact and commits the manifest immediately, per spec.md §4.1's
// ociParManifest description and §4.12's artifact→PAR URL map.
func (b *Builder) EnablePARMode(parBackend parCreator, expireAfter time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.parBackend = parBackend
	b.parExpire = expireAfter
}

const defaultParExpiry = 7 * 24 * time.Hour

// AddArtifact records one produced artifact. In PAR mode it also creates
// the artifact's PAR and commits the manifest to storage immediately,
// matching the "appends to @.manifest.json as the dump progresses"
// behavior spec.md §4.1 describes for OCI.
func (b *Builder) AddArtifact(ctx context.Context, a Artifact, dumpEndEstimate time.Time) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.parBackend != nil {
		expireAfter := b.parExpire
		if expireAfter <= 0 {
			expireAfter = defaultParExpiry
		}
		expires := dumpEndEstimate.Add(expireAfter)
		url, err := b.parBackend.CreatePAR(ctx, a.Path, expires)
		if err != nil {
			return shellerr.Wrap(shellerr.KindOf(err), "creating PAR for "+a.Path, err)
		}
		a.ParURL = url
		a.ParExpires = &expires
	}

	b.doc.Artifacts = append(b.doc.Artifacts, a)

	if b.parBackend != nil {
		return b.commitLocked(ctx)
	}
	return nil
}

// AddTable records one table's chunk ranges.
func (b *Builder) AddTable(t TableEntry) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.doc.Tables = append(b.doc.Tables, t)
}

// Finalize sets dump_complete and ended_at and commits the manifest. A
// dump whose manifest lacks dump_complete=true is treated by the loader as
// unsafe to load, per spec.md §3's invariant.
func (b *Builder) Finalize(ctx context.Context, endedAt time.Time) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.doc.EndedAt = &endedAt
	b.doc.DumpComplete = true
	return b.commitLocked(ctx)
}

// Commit writes the manifest document as-is, without marking it complete,
// e.g. for a mid-dump snapshot. The completing write is Finalize's.
func (b *Builder) Commit(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.commitLocked(ctx)
}

func (b *Builder) commitLocked(ctx context.Context) error {
	wc, err := b.backend.OpenWrite(ctx, b.path)
	if err != nil {
		return shellerr.Wrap(shellerr.PersistentIO, "writing manifest", err)
	}
	enc := json.NewEncoder(wc)
	enc.SetIndent("", "  ")
	if err := enc.Encode(b.doc); err != nil {
		wc.Close()
		return shellerr.Wrap(shellerr.ArgumentError, "encoding manifest", err)
	}
	return wc.Close()
}

// Load reads and decodes the manifest at path.
func Load(ctx context.Context, backend storage.Backend, path string) (*Document, error) {
	rc, err := backend.OpenRead(ctx, path)
	if err != nil {
		return nil, shellerr.Wrap(shellerr.PersistentIO, "opening manifest", err)
	}
	defer rc.Close()

	raw, err := io.ReadAll(rc)
	if err != nil {
		return nil, shellerr.Wrap(shellerr.PersistentIO, "reading manifest", err)
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, shellerr.Wrap(shellerr.ArgumentError, "decoding manifest", err)
	}
	if doc.SchemaVersion > schemaVersion {
		return nil, shellerr.New(shellerr.CompatibilityError, "manifest schema_version is newer than this tool understands")
	}
	return &doc, nil
}

// RequireOcimds returns a CompatibilityError if the loader was asked to
// require an OCIMDS-compatible dump but the manifest does not record one,
// per spec.md §3's ocimds invariant.
func RequireOcimds(doc *Document, required bool) error {
	if required && !doc.Ocimds {
		return shellerr.New(shellerr.CompatibilityError, "dump was not produced with ocimds, but the load requires it")
	}
	return nil
}

// DumpComplete satisfies the dumpComplete callback internal/loadsched.WaitDumpArtifacts
// expects, reloading the manifest from backend each poll.
func DumpComplete(backend storage.Backend, path string) func(ctx context.Context) (bool, error) {
	return func(ctx context.Context) (bool, error) {
		doc, err := Load(ctx, backend, path)
		if err != nil {
			return false, nil // manifest not yet written; keep polling
		}
		return doc.DumpComplete, nil
	}
}
