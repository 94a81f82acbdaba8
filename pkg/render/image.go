package render

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"  // register decoder
	_ "image/jpeg" // register decoder
	_ "image/png"  // register decoder
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/srwiley/rasterx"
	_ "golang.org/x/image/bmp"  // register decoder
	_ "golang.org/x/image/tiff" // register decoder
	_ "golang.org/x/image/webp" // register decoder

	"github.com/matzehuels/svgpng/pkg/svgdoc"
)

// imageItem is a decoded raster image placed in user space.
type imageItem struct {
	img        image.Image
	x, y, w, h float64
	aspect     svgdoc.AspectRatio
	opacity    float64
	ctm        rasterx.Matrix2D
}

func (wk *walker) image(n *svgdoc.Node, ctm rasterx.Matrix2D, sc scope, opacity float64) {
	if sc.hidden() {
		return
	}
	href, _ := n.Attr("href")
	img, err := wk.tree.loadImage(strings.TrimSpace(href))
	if err != nil {
		wk.tree.logger.Debug("skipping image", "href", truncate(href, 64), "err", err)
		return
	}

	ms := wk.tree.ms
	b := img.Bounds()
	item := &imageItem{
		img:     img,
		x:       n.Number("x", ms.DPI, ms.Viewport[0], 0),
		y:       n.Number("y", ms.DPI, ms.Viewport[1], 0),
		w:       n.Number("width", ms.DPI, ms.Viewport[0], float64(b.Dx())),
		h:       n.Number("height", ms.DPI, ms.Viewport[1], float64(b.Dy())),
		opacity: opacity,
		ctm:     ctm,
	}
	if item.w <= 0 || item.h <= 0 {
		return
	}
	ar, _ := n.Attr("preserveAspectRatio")
	item.aspect = svgdoc.ParseAspectRatio(ar)
	wk.tree.images = append(wk.tree.images, item)
}

// loadImage reads an image reference: a data URI, or a path resolved
// against the resources directory.
func (t *Tree) loadImage(href string) (image.Image, error) {
	if href == "" {
		return nil, fmt.Errorf("empty href")
	}

	var data []byte
	if strings.HasPrefix(href, "data:") {
		d, err := decodeDataURI(href)
		if err != nil {
			return nil, err
		}
		data = d
	} else {
		path := strings.TrimPrefix(href, "file://")
		if !filepath.IsAbs(path) {
			dir, err := t.plan.ResourcesDir()
			if err != nil {
				return nil, err
			}
			path = filepath.Join(dir, filepath.FromSlash(path))
		}
		d, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		data = d
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	return img, err
}

// decodeDataURI returns the payload of data:[<mediatype>][;base64],<data>.
func decodeDataURI(uri string) ([]byte, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !ok {
		return nil, fmt.Errorf("malformed data URI")
	}
	if strings.HasSuffix(meta, ";base64") {
		clean := strings.Map(func(r rune) rune {
			if r == ' ' || r == '\n' || r == '\r' || r == '\t' {
				return -1
			}
			return r
		}, payload)
		b, err := base64.StdEncoding.DecodeString(clean)
		if err != nil {
			return base64.RawStdEncoding.DecodeString(strings.TrimRight(clean, "="))
		}
		return b, nil
	}
	s, err := url.PathUnescape(payload)
	return []byte(s), err
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
