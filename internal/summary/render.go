package summary

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var ErrNotRendered = errors.New("summary image not rendered")

// --- 画布常量 ---
const (
	imageWidth  = 600
	imageHeight = 400

	titleSize = 22
	bodySize  = 16
	marginX   = 20
	indentX   = 40
	lineStep  = 25
)

var (
	background = color.RGBA{R: 240, G: 240, B: 240, A: 255}
	foreground = image.NewUniform(color.Black)
)

// Renderer 把摘要绘制成PNG并写入固定路径
type Renderer struct {
	path    string
	title   font.Face
	body    font.Face
	printer *message.Printer

	// 字体face不是并发安全的
	mu sync.Mutex
}

func NewRenderer(path string) (*Renderer, error) {
	ttf, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("无法解析字体: %w", err)
	}
	title, err := opentype.NewFace(ttf, &opentype.FaceOptions{Size: titleSize, DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		return nil, fmt.Errorf("无法创建标题字体: %w", err)
	}
	body, err := opentype.NewFace(ttf, &opentype.FaceOptions{Size: bodySize, DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		return nil, fmt.Errorf("无法创建正文字体: %w", err)
	}
	return &Renderer{
		path:    path,
		title:   title,
		body:    body,
		printer: message.NewPrinter(language.English),
	}, nil
}

func (r *Renderer) Path() string {
	return r.path
}

// Lines 返回图中除标题外的文本行
func (r *Renderer) Lines(s Summary) []string {
	lines := []string{
		fmt.Sprintf("Total Countries: %d", s.Total),
		"Last Refresh: " + s.RefreshedAt.UTC().Format("2006-01-02 15:04:05") + " UTC",
		"Top 5 by Estimated GDP:",
	}
	for _, row := range s.Top {
		lines = append(lines, fmt.Sprintf("%d. %s — %s", row.Rank, row.Name, r.printer.Sprintf("%.2f", row.GDP)))
	}
	return lines
}

// Render 绘制摘要并以原子方式替换已有的图片
func (r *Renderer) Render(s Summary) error {
	img := image.NewRGBA(image.Rect(0, 0, imageWidth, imageHeight))
	draw.Draw(img, img.Bounds(), image.NewUniform(background), image.Point{}, draw.Src)

	lines := r.Lines(s)

	r.mu.Lock()
	r.drawText(img, r.title, marginX, 40, "Country Summary")
	y := 80
	for i, line := range lines {
		x := marginX
		if i >= 3 {
			x = indentX
		}
		if i == 3 {
			y += 10
		}
		r.drawText(img, r.body, x, y, line)
		y += lineStep
	}
	r.mu.Unlock()

	return r.write(img)
}

func (r *Renderer) drawText(dst draw.Image, face font.Face, x, y int, text string) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  foreground,
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}

func (r *Renderer) write(img image.Image) error {
	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("无法创建图片目录 %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".summary-*.png")
	if err != nil {
		return fmt.Errorf("无法创建临时图片文件: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := png.Encode(tmp, img); err != nil {
		tmp.Close()
		return fmt.Errorf("PNG编码失败: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("写入临时图片文件失败: %w", err)
	}
	if err := os.Rename(tmpName, r.path); err != nil {
		return fmt.Errorf("替换摘要图片失败: %w", err)
	}
	return nil
}

// Load 读取最近一次生成的图片，尚未生成时返回 ErrNotRendered
func (r *Renderer) Load() ([]byte, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotRendered
		}
		return nil, fmt.Errorf("读取摘要图片失败: %w", err)
	}
	return data, nil
}
