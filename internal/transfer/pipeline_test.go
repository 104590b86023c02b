// Copyright (c) 2026 Netskope, Inc. All rights reserved.

package transfer

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path"
	"path/filepath"
	"testing"

	"github.com/netSkope/s3-adls-connector/internal/checksum"
	"github.com/netSkope/s3-adls-connector/internal/convert"
	"github.com/netSkope/s3-adls-connector/internal/s3"
	"github.com/netSkope/s3-adls-connector/internal/xfererr"
	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeSource struct {
	objects map[string]string
	listErr error
	fetched []string
}

func (f *fakeSource) List(context.Context) ([]s3.Object, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []s3.Object
	for key, body := range f.objects {
		ext, _ := s3.SupportedExtension(key)
		out = append(out, s3.Object{Key: key, Size: int64(len(body)), Extension: ext})
	}
	return out, nil
}

func (f *fakeSource) Fetch(_ context.Context, obj s3.Object, dir string) (string, error) {
	f.fetched = append(f.fetched, obj.Key)
	body, ok := f.objects[obj.Key]
	if !ok {
		return "", xfererr.Newf(xfererr.KindNotFound, "fetch "+obj.Key, "NoSuchKey")
	}
	local := filepath.Join(dir, path.Base(obj.Key))
	return local, os.WriteFile(local, []byte(body), 0o600)
}

type fakeDest struct {
	files      map[string][]byte
	checkErr   error
	remoteSums map[string]string
}

func newFakeDest() *fakeDest {
	return &fakeDest{files: map[string][]byte{}, remoteSums: map[string]string{}}
}

func (f *fakeDest) CheckContainer(context.Context) error  { return f.checkErr }
func (f *fakeDest) EnsureDirectory(context.Context) error { return nil }

func (f *fakeDest) Upload(_ context.Context, local string) (string, error) {
	data, err := os.ReadFile(local)
	if err != nil {
		return "", err
	}
	remote := "raw_data/" + filepath.Base(local)
	f.files[remote] = data
	return remote, nil
}

func (f *fakeDest) RemoteDigest(_ context.Context, remote string, algo checksum.Algorithm) (string, error) {
	if sum, ok := f.remoteSums[remote]; ok {
		return sum, nil
	}
	data, ok := f.files[remote]
	if !ok {
		return "", xfererr.New(xfererr.KindNotFound, "download "+remote, nil)
	}
	return checksum.DigestReader(bytes.NewReader(data), algo)
}

type panicConverter struct{}

func (panicConverter) Convert(string, convert.Kind) (string, error) {
	panic("boom")
}

func newPipeline(t *testing.T, src Source, dest Destination, conv Converter, opts Options) *Pipeline {
	t.Helper()
	if opts.ScratchBase == "" {
		opts.ScratchBase = t.TempDir()
	}
	p, err := NewPipeline(src, dest, conv, opts, zaptest.NewLogger(t))
	require.NoError(t, err)
	return p
}

func assertScratchGone(t *testing.T, base string, report *Report) {
	t.Helper()
	if report != nil && report.ScratchDir != "" {
		_, err := os.Stat(report.ScratchDir)
		assert.True(t, os.IsNotExist(err), "scratch directory must be removed")
	}
	entries, err := os.ReadDir(base)
	require.NoError(t, err)
	assert.Empty(t, entries, "nothing may remain under the scratch base")
}

func TestRun_PartialFailureIsolation(t *testing.T) {
	src := &fakeSource{objects: map[string]string{
		"a.csv": "id\n1\n",
		"c.csv": "id\n3\n",
	}}
	dest := newFakeDest()
	base := t.TempDir()
	p := newPipeline(t, src, dest, nil, Options{ScratchBase: base})

	_, err := p.List(context.Background())
	require.NoError(t, err)

	// b.csv was listed earlier but has since been deleted.
	sel := Selection{Items: []Item{
		{Key: "a.csv", Object: s3.Object{Key: "a.csv"}, Found: true},
		{Key: "b.csv", Object: s3.Object{Key: "b.csv"}, Found: true},
		{Key: "c.csv", Object: s3.Object{Key: "c.csv"}, Found: true},
	}}
	report, err := p.Run(context.Background(), sel)
	require.NoError(t, err)

	assert.Equal(t, []string{"a.csv", "b.csv", "c.csv"}, src.fetched)
	assert.Equal(t, 2, report.Succeeded())
	assert.Equal(t, 1, report.Failed())
	assert.False(t, report.OK())

	require.Len(t, report.Outcomes, 3)
	assert.True(t, report.Outcomes[0].Succeeded())
	assert.ErrorIs(t, report.Outcomes[1].Err, xfererr.ErrNotFound)
	assert.Equal(t, "NotFoundError", report.Outcomes[1].ErrorKind())
	assert.True(t, report.Outcomes[2].Succeeded())
	assert.Equal(t, "raw_data/c.csv", report.Outcomes[2].RemotePath)

	assert.Equal(t, StateDone, p.State())
	assertScratchGone(t, base, report)
}

func TestRun_CleanupOnEveryOutcome(t *testing.T) {
	tests := []struct {
		name    string
		keys    []string
		dest    func() *fakeDest
		wantErr bool
	}{
		{
			name: "all success",
			keys: []string{"a.csv"},
			dest: newFakeDest,
		},
		{
			name: "partial failure",
			keys: []string{"a.csv", "missing.csv"},
			dest: newFakeDest,
		},
		{
			name: "total failure before any file",
			keys: []string{"a.csv"},
			dest: func() *fakeDest {
				d := newFakeDest()
				d.checkErr = xfererr.New(xfererr.KindAuth, "check container", errors.New("bad key"))
				return d
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &fakeSource{objects: map[string]string{"a.csv": "x\n1\n"}}
			base := t.TempDir()
			p := newPipeline(t, src, tt.dest(), nil, Options{ScratchBase: base})

			listing, err := p.List(context.Background())
			require.NoError(t, err)

			report, err := p.Run(context.Background(), Select(listing, tt.keys))
			require.NotNil(t, report)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, xfererr.ErrAuth)
				assert.Empty(t, report.Outcomes)
				assert.Empty(t, src.fetched)
				assert.Equal(t, StateFailed, p.State())
			} else {
				require.NoError(t, err)
				assert.Equal(t, StateDone, p.State())
			}
			assertScratchGone(t, base, report)
		})
	}
}

func TestRun_CleanupOnPanic(t *testing.T) {
	src := &fakeSource{objects: map[string]string{"a.csv": "x\n1\n"}}
	base := t.TempDir()
	p := newPipeline(t, src, newFakeDest(), panicConverter{}, Options{ScratchBase: base, Convert: true})

	listing, err := p.List(context.Background())
	require.NoError(t, err)

	assert.Panics(t, func() {
		_, _ = p.Run(context.Background(), SelectAll(listing))
	})
	assertScratchGone(t, base, nil)
}

func TestRun_ChecksumMismatchIsAdvisory(t *testing.T) {
	src := &fakeSource{objects: map[string]string{"a.csv": "hello", "b.csv": "world"}}
	dest := newFakeDest()
	dest.remoteSums["raw_data/b.csv"] = "00000000000000000000000000000000"
	p := newPipeline(t, src, dest, nil, Options{Verify: true})

	listing, err := p.List(context.Background())
	require.NoError(t, err)

	report, err := p.Run(context.Background(), Select(listing, []string{"a.csv", "b.csv"}))
	require.NoError(t, err)
	require.Len(t, report.Outcomes, 2)

	a, b := report.Outcomes[0], report.Outcomes[1]
	assert.True(t, a.Succeeded())
	assert.Equal(t, ChecksumMatch, a.Checksum)
	assert.Equal(t, "5d41402abc4b2a76b9719d911017c592", a.LocalDigest)
	assert.Equal(t, []Stage{StageFetched, StageUploaded, StageVerified}, a.Stages)

	assert.True(t, b.Succeeded(), "mismatch must not fail the file")
	assert.Equal(t, ChecksumMismatch, b.Checksum)
	assert.ErrorIs(t, b.ChecksumErr, xfererr.ErrChecksumMismatch)
	assert.Contains(t, dest.files, "raw_data/b.csv", "upload is not rolled back")

	assert.Equal(t, 1, report.ChecksumMismatches())
	assert.True(t, report.OK())
}

func TestRun_UnknownSelection(t *testing.T) {
	src := &fakeSource{objects: map[string]string{"a.csv": "x"}}
	p := newPipeline(t, src, newFakeDest(), nil, Options{})

	listing, err := p.List(context.Background())
	require.NoError(t, err)

	report, err := p.Run(context.Background(), Select(listing, []string{"nope.json", "a.csv"}))
	require.NoError(t, err)

	assert.Equal(t, []string{"a.csv"}, src.fetched, "unknown names are never fetched")
	require.Len(t, report.Outcomes, 2)
	assert.ErrorIs(t, report.Outcomes[0].Err, xfererr.ErrNotFound)
	assert.True(t, report.Outcomes[1].Succeeded())
}

func TestRun_ConvertsTabularFiles(t *testing.T) {
	src := &fakeSource{objects: map[string]string{
		"in/sales.csv":     "id,name\n1,a\n2,b\n",
		"in/ready.parquet": "PAR1",
	}}
	dest := newFakeDest()
	conv := convert.NewConverter(',', nil, zaptest.NewLogger(t))
	p := newPipeline(t, src, dest, conv, Options{Convert: true})

	listing, err := p.List(context.Background())
	require.NoError(t, err)

	report, err := p.Run(context.Background(), Select(listing, []string{"in/sales.csv", "in/ready.parquet"}))
	require.NoError(t, err)
	require.Len(t, report.Outcomes, 2)

	sales := report.Outcomes[0]
	assert.True(t, sales.Succeeded())
	assert.True(t, sales.Converted)
	assert.Equal(t, "raw_data/sales.parquet", sales.RemotePath)
	assert.Equal(t, []Stage{StageFetched, StageConverted, StageUploaded}, sales.Stages)
	assert.Equal(t, "PAR1", string(dest.files["raw_data/sales.parquet"][:4]))

	ready := report.Outcomes[1]
	assert.False(t, ready.Converted)
	assert.Equal(t, "raw_data/ready.parquet", ready.RemotePath)
}

func TestRun_ConvertedNameCollisionOverwrites(t *testing.T) {
	src := &fakeSource{objects: map[string]string{
		"sales.csv":  "from_csv\n1\n",
		"sales.json": `[{"from_json": 2}, {"from_json": 3}]`,
	}}
	dest := newFakeDest()
	conv := convert.NewConverter(',', nil, zaptest.NewLogger(t))
	p := newPipeline(t, src, dest, conv, Options{Convert: true})

	listing, err := p.List(context.Background())
	require.NoError(t, err)

	report, err := p.Run(context.Background(), Select(listing, []string{"sales.csv", "sales.json"}))
	require.NoError(t, err)
	require.Len(t, report.Outcomes, 2)
	assert.True(t, report.OK())

	for _, o := range report.Outcomes {
		assert.True(t, o.Converted, o.Key)
		assert.Equal(t, "raw_data/sales.parquet", o.RemotePath, o.Key)
	}
	require.Len(t, dest.files, 1)

	data := dest.files["raw_data/sales.parquet"]
	pf, err := parquet.OpenFile(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	assert.EqualValues(t, 2, pf.NumRows(), "second file wins")
	fields := pf.Schema().Fields()
	require.Len(t, fields, 1)
	assert.Equal(t, "from_json", fields[0].Name())
}

func TestRun_ConversionFailureIsPerFile(t *testing.T) {
	src := &fakeSource{objects: map[string]string{
		"bad.csv":  "a,b\n1\n",
		"good.csv": "a\n1\n",
	}}
	dest := newFakeDest()
	p := newPipeline(t, src, dest, convert.NewConverter(',', nil, nil), Options{Convert: true})

	listing, err := p.List(context.Background())
	require.NoError(t, err)

	report, err := p.Run(context.Background(), Select(listing, []string{"bad.csv", "good.csv"}))
	require.NoError(t, err)

	assert.ErrorIs(t, report.Outcomes[0].Err, xfererr.ErrConversion)
	assert.True(t, report.Outcomes[1].Succeeded())
	assert.NotContains(t, dest.files, "raw_data/bad.csv")
	assert.NotContains(t, dest.files, "raw_data/bad.parquet")
}

func TestPipeline_StateEvents(t *testing.T) {
	var states []State
	var stages []Stage
	opts := Options{Progress: func(e Event) {
		if e.Key == "" {
			states = append(states, e.State)
			return
		}
		stages = append(stages, e.Stage)
	}}
	src := &fakeSource{objects: map[string]string{"a.json": `{"x": 1}`}}
	p := newPipeline(t, src, newFakeDest(), nil, opts)

	listing, err := p.List(context.Background())
	require.NoError(t, err)
	_, err = p.Run(context.Background(), SelectAll(listing))
	require.NoError(t, err)

	assert.Equal(t, []State{StateListing, StateSelecting, StateTransferring, StateCleaned, StateDone}, states)
	assert.Equal(t, []Stage{StageFetched, StageUploaded}, stages)
}

func TestPipeline_ListFailure(t *testing.T) {
	src := &fakeSource{listErr: xfererr.New(xfererr.KindAuth, "list", nil)}
	p := newPipeline(t, src, newFakeDest(), nil, Options{})

	_, err := p.List(context.Background())
	assert.ErrorIs(t, err, xfererr.ErrAuth)
	assert.Equal(t, StateFailed, p.State())
}

func TestPipeline_RunRequiresListing(t *testing.T) {
	p := newPipeline(t, &fakeSource{}, newFakeDest(), nil, Options{})
	report, err := p.Run(context.Background(), Selection{})
	require.Error(t, err)
	assert.Equal(t, err, report.Err)
}

func TestNewPipeline_Validation(t *testing.T) {
	_, err := NewPipeline(nil, newFakeDest(), nil, Options{}, nil)
	assert.Error(t, err)

	_, err = NewPipeline(&fakeSource{}, newFakeDest(), nil, Options{Convert: true}, nil)
	assert.Error(t, err)
}

func TestSelect(t *testing.T) {
	listing := []s3.Object{{Key: "a.csv"}, {Key: "b.json"}, {Key: "c.parquet"}}

	sel := Select(listing, []string{"c.parquet", "a.csv", "c.parquet", "", "zzz.csv"})
	require.Equal(t, 3, sel.Len())
	assert.Equal(t, "c.parquet", sel.Items[0].Key)
	assert.Equal(t, "a.csv", sel.Items[1].Key)
	assert.True(t, sel.Items[1].Found)
	assert.Equal(t, "zzz.csv", sel.Items[2].Key)
	assert.False(t, sel.Items[2].Found)

	all := SelectAll(listing)
	assert.Equal(t, 3, all.Len())
}
