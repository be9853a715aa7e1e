package drm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"

	"github.com/Eyevinn/mp4ff/mp4"
	"github.com/google/uuid"
)

// maxHeaderBytes caps how much of a remote file is fetched while looking for the moov box
const maxHeaderBytes = 4 << 20

var ErrMoovNotFound = errors.New("moov box not found")

// KeyIDsFromMP4 reads top level boxes until the moov box and returns the default key ids of all protected
// sample entries plus any key ids listed in pssh boxes.  The result is de-duplicated and keeps box order.
func KeyIDsFromMP4(r io.Reader) ([]uuid.UUID, error) {
	br := bufio.NewReader(r)
	var pos uint64
	for {
		if _, err := br.Peek(1); errors.Is(err, io.EOF) {
			return nil, ErrMoovNotFound
		}
		box, err := mp4.DecodeBox(pos, br)
		if err != nil {
			return nil, fmt.Errorf("could not decode box: %w", err)
		}
		if moov, ok := box.(*mp4.MoovBox); ok {
			return collectKeyIDs(moov), nil
		}
		pos += box.Size()
	}
}

func collectKeyIDs(moov *mp4.MoovBox) []uuid.UUID {
	var kids []uuid.UUID
	seen := make(map[uuid.UUID]bool)
	add := func(raw mp4.UUID) {
		if len(raw) != 16 {
			return
		}
		kid := uuid.UUID(raw)
		if kid == uuid.Nil || seen[kid] {
			return
		}
		seen[kid] = true
		kids = append(kids, kid)
	}

	var walk func(boxes []mp4.Box)
	walk = func(boxes []mp4.Box) {
		for _, b := range boxes {
			switch box := b.(type) {
			case *mp4.TencBox:
				add(box.DefaultKID)
			case *mp4.PsshBox:
				for _, kid := range box.KIDs {
					add(kid)
				}
			case *mp4.VisualSampleEntryBox:
				if box.Sinf != nil {
					walk([]mp4.Box{box.Sinf})
				}
			case *mp4.AudioSampleEntryBox:
				if box.Sinf != nil {
					walk([]mp4.Box{box.Sinf})
				}
			case mp4.ContainerBox:
				walk(box.GetChildren())
			}
		}
	}
	walk(moov.Children)

	return kids
}

// KeyIDsFromDASH returns the cenc:default_KID values of a DASH manifest
func KeyIDsFromDASH(r io.Reader) ([]uuid.UUID, error) {
	var kids []uuid.UUID
	seen := make(map[uuid.UUID]bool)

	decoder := xml.NewDecoder(r)
	for {
		tok, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("could not parse manifest: %w", err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "ContentProtection" {
			continue
		}
		for _, attr := range start.Attr {
			if attr.Name.Local != "default_KID" {
				continue
			}
			kid, err := uuid.Parse(strings.TrimSpace(attr.Value))
			if err != nil {
				return nil, fmt.Errorf("invalid default_KID %q: %w", attr.Value, err)
			}
			if !seen[kid] {
				seen[kid] = true
				kids = append(kids, kid)
			}
		}
	}

	if len(kids) == 0 {
		return nil, ErrNoKeyIDs
	}
	return kids, nil
}

// DiscoverKeyIDs opens the media behind a resolved locator (a local path or an http(s) URL) and extracts its
// content key ids.  DASH manifests are recognised by their .mpd extension; everything else is treated as MP4.
func DiscoverKeyIDs(ctx context.Context, httpClient *http.Client, locator string) ([]uuid.UUID, error) {
	rc, err := openMedia(ctx, httpClient, locator)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	if strings.EqualFold(path.Ext(stripQuery(locator)), ".mpd") {
		return KeyIDsFromDASH(rc)
	}

	kids, err := KeyIDsFromMP4(rc)
	if err != nil {
		return nil, err
	}
	if len(kids) == 0 {
		return nil, ErrNoKeyIDs
	}
	return kids, nil
}

func openMedia(ctx context.Context, httpClient *http.Client, locator string) (io.ReadCloser, error) {
	u, err := url.Parse(locator)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		f, err := os.Open(strings.TrimPrefix(locator, "file://"))
		if err != nil {
			return nil, fmt.Errorf("could not open media: %w", err)
		}
		return f, nil
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, locator, nil)
	if err != nil {
		return nil, fmt.Errorf("could not create media request: %w", err)
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=0-%d", maxHeaderBytes-1))

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("media request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		return nil, fmt.Errorf("media request failed: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxHeaderBytes))
	if err != nil {
		return nil, fmt.Errorf("could not read media: %w", err)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func stripQuery(locator string) string {
	if i := strings.IndexAny(locator, "?#"); i >= 0 {
		return locator[:i]
	}
	return locator
}
