package drm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Eyevinn/mp4ff/mp4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testKID = uuid.MustParse("10000000-1000-1000-1000-100000000001")

func TestParseScheme(t *testing.T) {
	tests := []struct {
		in      string
		want    Scheme
		wantErr bool
	}{
		{in: "widevine", want: SchemeWidevine},
		{in: " ClearKey ", want: SchemeClearKey},
		{in: "PLAYREADY", want: SchemePlayReady},
		{in: "edef8ba9-79d6-4ace-a3c8-27dcd51d21ed", want: SchemeWidevine},
		{in: "1077efec-c0b2-4d02-ace3-3c1e52e2fb4b", want: SchemeClearKey},
		{in: "fairplay", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseScheme(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.NotEqual(t, uuid.Nil, got.SystemID())
		})
	}
}

func encodeInitWithPssh(t *testing.T, kids ...uuid.UUID) []byte {
	t.Helper()

	init := mp4.CreateEmptyInit()
	init.AddEmptyTrack(90000, "video", "und")

	pssh := &mp4.PsshBox{
		Version:  1,
		SystemID: mp4.UUID(ClearKeySystemID[:]),
	}
	for _, kid := range kids {
		k := kid
		pssh.KIDs = append(pssh.KIDs, mp4.UUID(k[:]))
	}
	init.Moov.AddChild(pssh)

	var buf bytes.Buffer
	require.NoError(t, init.Encode(&buf))
	return buf.Bytes()
}

func TestKeyIDsFromMP4(t *testing.T) {
	other := uuid.MustParse("20000000-2000-2000-2000-200000000002")
	data := encodeInitWithPssh(t, testKID, other, testKID)

	kids, err := KeyIDsFromMP4(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{testKID, other}, kids)
}

func TestKeyIDsFromMP4WithoutMoov(t *testing.T) {
	ftyp := mp4.NewFtyp("isom", 0, []string{"isom"})
	var buf bytes.Buffer
	require.NoError(t, ftyp.Encode(&buf))

	_, err := KeyIDsFromMP4(&buf)
	assert.ErrorIs(t, err, ErrMoovNotFound)
}

const testManifest = `<?xml version="1.0" encoding="UTF-8"?>
<MPD xmlns="urn:mpeg:dash:schema:mpd:2011" xmlns:cenc="urn:mpeg:cenc:2013">
  <Period>
    <AdaptationSet mimeType="video/mp4">
      <ContentProtection schemeIdUri="urn:mpeg:dash:mp4protection:2011" value="cenc" cenc:default_KID="10000000-1000-1000-1000-100000000001"/>
      <ContentProtection schemeIdUri="urn:uuid:1077efec-c0b2-4d02-ace3-3c1e52e2fb4b"/>
    </AdaptationSet>
    <AdaptationSet mimeType="audio/mp4">
      <ContentProtection schemeIdUri="urn:mpeg:dash:mp4protection:2011" value="cenc" cenc:default_KID="10000000-1000-1000-1000-100000000001"/>
    </AdaptationSet>
  </Period>
</MPD>`

func TestKeyIDsFromDASH(t *testing.T) {
	kids, err := KeyIDsFromDASH(strings.NewReader(testManifest))
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{testKID}, kids)

	_, err = KeyIDsFromDASH(strings.NewReader(`<MPD><Period/></MPD>`))
	assert.ErrorIs(t, err, ErrNoKeyIDs)
}

func TestDiscoverKeyIDs(t *testing.T) {
	t.Run("LocalMP4", func(t *testing.T) {
		p := filepath.Join(t.TempDir(), "init.mp4")
		require.NoError(t, os.WriteFile(p, encodeInitWithPssh(t, testKID), 0600))

		kids, err := DiscoverKeyIDs(context.Background(), nil, "file://"+p)
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{testKID}, kids)
	})

	t.Run("RemoteManifest", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(testManifest))
		}))
		defer srv.Close()

		kids, err := DiscoverKeyIDs(context.Background(), srv.Client(), srv.URL+"/drm.mpd?token=abc")
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{testKID}, kids)
	})

	t.Run("MissingRemote", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		defer srv.Close()

		_, err := DiscoverKeyIDs(context.Background(), srv.Client(), srv.URL+"/missing.mp4")
		assert.Error(t, err)
	})
}

func TestClearKeyAcquire(t *testing.T) {
	key := bytes.Repeat([]byte{0xab}, 16)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasPrefix(r.UserAgent(), "vidbridge/"))
		var req licenseRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		resp := licenseResponse{}
		for _, kid := range req.KIDs {
			if kid == base64.RawURLEncoding.EncodeToString(testKID[:]) {
				resp.Keys = append(resp.Keys, jsonWebKey{Kty: "oct", KID: kid, K: base64.RawURLEncoding.EncodeToString(key)})
			}
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	client := NewClearKeyClient(srv.URL, srv.Client())

	t.Run("KeyReturned", func(t *testing.T) {
		keys, err := client.Acquire(context.Background(), []uuid.UUID{testKID})
		require.NoError(t, err)
		require.Len(t, keys, 1)
		assert.Equal(t, testKID, keys[0].KID)
		assert.Equal(t, key, keys[0].Key)
	})

	t.Run("KeyMissing", func(t *testing.T) {
		_, err := client.Acquire(context.Background(), []uuid.UUID{uuid.New()})
		assert.ErrorIs(t, err, ErrKeyMissing)
	})

	t.Run("NoKeyIDs", func(t *testing.T) {
		_, err := client.Acquire(context.Background(), nil)
		assert.ErrorIs(t, err, ErrNoKeyIDs)
	})
}

func TestClearKeyAcquireRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := NewClearKeyClient(srv.URL, srv.Client()).Acquire(context.Background(), []uuid.UUID{testKID})
	assert.ErrorIs(t, err, ErrLicenseRefused)
}
