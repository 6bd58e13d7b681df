package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/yhilem/distill/mimetype"
)

// PPTXExtractor parses the modern PowerPoint container slide by slide.
type PPTXExtractor struct{}

func (e *PPTXExtractor) Name() string { return "pptx" }

func (e *PPTXExtractor) Supports(mime string) bool { return mime == mimetype.PPTX }

func (e *PPTXExtractor) Extract(ctx context.Context, content []byte, mime string, cfg *Config) (*Result, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("opening PPTX: %w", err)
	}
	index := zipIndex(zr)

	// Slides are ppt/slides/slide<N>.xml; order by N, not archive order.
	slides := make(map[int]*zip.File)
	for name, f := range index {
		if strings.HasPrefix(name, "ppt/slides/slide") && strings.HasSuffix(name, ".xml") {
			if num := slideNumber(name); num > 0 {
				slides[num] = f
			}
		}
	}
	nums := make([]int, 0, len(slides))
	for n := range slides {
		nums = append(nums, n)
	}
	sort.Ints(nums)

	result := &Result{MimeType: mime}
	var sb strings.Builder
	for _, num := range nums {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := readAllZip(slides[num])
		if err != nil {
			continue
		}
		text := pptxSlideText(data)
		if text == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "## Slide %d\n\n%s", num, text)

		if cfg != nil && cfg.Images != nil {
			max := cfg.Images.MaxImages
			for _, img := range pptxSlideImages(data, num, index) {
				if max > 0 && len(result.Images) >= max {
					break
				}
				img.Index = len(result.Images)
				result.Images = append(result.Images, img)
			}
		}
	}

	result.Content = sb.String()
	result.SetMeta("slide_count", strconv.Itoa(len(nums)))
	return result, nil
}

type pptxSlide struct {
	XMLName xml.Name `xml:"sld"`
	CSld    struct {
		SpTree struct {
			SPs []struct {
				TxBody *struct {
					Paras []struct {
						Runs []struct {
							Text string `xml:"t"`
						} `xml:"r"`
					} `xml:"p"`
				} `xml:"txBody"`
			} `xml:"sp"`
		} `xml:"spTree"`
	} `xml:"cSld"`
}

func pptxSlideText(data []byte) string {
	var slide pptxSlide
	if err := xml.Unmarshal(data, &slide); err != nil {
		return ""
	}
	var parts []string
	for _, sp := range slide.CSld.SpTree.SPs {
		if sp.TxBody == nil {
			continue
		}
		for _, para := range sp.TxBody.Paras {
			var line strings.Builder
			for _, run := range para.Runs {
				line.WriteString(run.Text)
			}
			if t := strings.TrimSpace(line.String()); t != "" {
				parts = append(parts, t)
			}
		}
	}
	return strings.Join(parts, "\n")
}

// pptxSlideImages resolves blip references on one slide to media bytes.
func pptxSlideImages(slideXML []byte, slideNum int, index map[string]*zip.File) []Image {
	relsPath := fmt.Sprintf("ppt/slides/_rels/slide%d.xml.rels", slideNum)
	rels := ooxmlRels(index, relsPath)
	if rels == nil {
		return nil
	}

	var images []Image
	decoder := xml.NewDecoder(bytes.NewReader(slideXML))
	for {
		tok, err := decoder.Token()
		if err != nil {
			break
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "blip" {
			continue
		}
		var embedID string
		for _, attr := range se.Attr {
			if attr.Name.Local == "embed" {
				embedID = attr.Value
				break
			}
		}
		target, ok := rels[embedID]
		if embedID == "" || !ok {
			continue
		}
		mediaPath := path.Clean("ppt/slides/" + strings.ReplaceAll(target, "\\", "/"))
		zf := index[mediaPath]
		if zf == nil {
			continue
		}
		data, err := readAllZip(zf)
		if err != nil {
			continue
		}
		images = append(images, Image{
			Format:     imageMimeFromPath(mediaPath),
			Data:       data,
			PageNumber: slideNum,
		})
	}
	return images
}

func slideNumber(name string) int {
	name = strings.TrimPrefix(name, "ppt/slides/slide")
	name = strings.TrimSuffix(name, ".xml")
	num, err := strconv.Atoi(name)
	if err != nil {
		return 0
	}
	return num
}
