package drawstate

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/luciang/haiku-sub001/color"
	"github.com/luciang/haiku-sub001/drawmode"
	"github.com/luciang/haiku-sub001/internal/basics"
	"github.com/luciang/haiku-sub001/region"
	"github.com/luciang/haiku-sub001/serverfont"
)

// Link is the packed client<->server wire stream spec.md §6 describes.
// "Endianness matches the host" in the original; this port fixes little
// endian so read_from_link(write_to_link(S)) == S holds independent of
// the machine running the test (spec.md §8).
type Link struct {
	buf *bytes.Buffer
}

// NewLink wraps raw bytes for reading, or starts an empty buffer for
// writing when data is nil.
func NewLink(data []byte) *Link {
	if data == nil {
		return &Link{buf: new(bytes.Buffer)}
	}
	return &Link{buf: bytes.NewBuffer(data)}
}

// Bytes returns the accumulated write buffer.
func (l *Link) Bytes() []byte { return l.buf.Bytes() }

func (l *Link) writeFloat64(v float64) { binary.Write(l.buf, binary.LittleEndian, v) }
func (l *Link) writeUint32(v uint32)   { binary.Write(l.buf, binary.LittleEndian, v) }
func (l *Link) writeUint16(v uint16)   { binary.Write(l.buf, binary.LittleEndian, v) }
func (l *Link) writeUint8(v uint8)     { l.buf.WriteByte(v) }
func (l *Link) writeBool(v bool) {
	if v {
		l.writeUint8(1)
	} else {
		l.writeUint8(0)
	}
}
func (l *Link) writePoint(p basics.PointD) {
	l.writeFloat64(p.X)
	l.writeFloat64(p.Y)
}
func (l *Link) writeColor(c color.RGBA) {
	l.buf.WriteByte(c.R)
	l.buf.WriteByte(c.G)
	l.buf.WriteByte(c.B)
	l.buf.WriteByte(c.A)
}

func (l *Link) readFloat64() (float64, error) {
	var v float64
	err := binary.Read(l.buf, binary.LittleEndian, &v)
	return v, err
}
func (l *Link) readUint32() (uint32, error) {
	var v uint32
	err := binary.Read(l.buf, binary.LittleEndian, &v)
	return v, err
}
func (l *Link) readUint16() (uint16, error) {
	var v uint16
	err := binary.Read(l.buf, binary.LittleEndian, &v)
	return v, err
}
func (l *Link) readUint8() (uint8, error) {
	return l.buf.ReadByte()
}
func (l *Link) readBool() (bool, error) {
	v, err := l.readUint8()
	return v != 0, err
}
func (l *Link) readPoint() (basics.PointD, error) {
	x, err := l.readFloat64()
	if err != nil {
		return basics.PointD{}, err
	}
	y, err := l.readFloat64()
	return basics.PointD{X: x, Y: y}, err
}
func (l *Link) readColor() (color.RGBA, error) {
	var b [4]byte
	if _, err := l.buf.Read(b[:]); err != nil {
		return color.RGBA{}, err
	}
	return color.RGBA{R: b[0], G: b[1], B: b[2], A: b[3]}, nil
}

// WriteToLink serializes every field spec.md §6 lists, in that exact
// order, except the font (written separately by WriteFontToLink).
func (s *DrawState) WriteToLink(l *Link) {
	l.writePoint(s.Origin)
	l.writeFloat64(s.Scale)
	l.writePoint(s.PenLocation)
	l.writeFloat64(s.PenSize)
	l.writeUint32(uint32(s.DrawingMode))
	l.writeColor(s.HighColor)
	l.writeColor(s.LowColor)
	for _, b := range s.Pattern {
		l.writeUint8(b)
	}
	l.writeUint32(uint32(s.AlphaSrcMode))
	l.writeUint32(uint32(s.AlphaFncMode))
	l.writeUint32(uint32(s.LineCapMode))
	l.writeUint32(uint32(s.LineJoinMode))
	l.writeFloat64(s.MiterLimit)
	l.writeBool(s.SubPixelPrecise)
	l.writeBool(s.FontAliasing)

	rects := s.ClippingRegion.Rects()
	l.writeUint32(uint32(len(rects)))
	for _, r := range rects {
		l.writeUint32(uint32(int32(r.X1)))
		l.writeUint32(uint32(int32(r.Y1)))
		l.writeUint32(uint32(int32(r.X2)))
		l.writeUint32(uint32(int32(r.Y2)))
	}
}

// ReadFromLink is the inverse of WriteToLink. It does not touch the
// font (spec.md §4.3: "ReadFromLink() does not read Font state").
func (s *DrawState) ReadFromLink(l *Link) error {
	var err error
	if s.Origin, err = l.readPoint(); err != nil {
		return fmt.Errorf("origin: %w", err)
	}
	if s.Scale, err = l.readFloat64(); err != nil {
		return fmt.Errorf("scale: %w", err)
	}
	if s.PenLocation, err = l.readPoint(); err != nil {
		return fmt.Errorf("pen location: %w", err)
	}
	if s.PenSize, err = l.readFloat64(); err != nil {
		return fmt.Errorf("pen size: %w", err)
	}
	mode, err := l.readUint32()
	if err != nil {
		return fmt.Errorf("drawing mode: %w", err)
	}
	s.DrawingMode = drawmode.Mode(mode)
	if s.HighColor, err = l.readColor(); err != nil {
		return fmt.Errorf("high color: %w", err)
	}
	if s.LowColor, err = l.readColor(); err != nil {
		return fmt.Errorf("low color: %w", err)
	}
	for i := range s.Pattern {
		b, err := l.readUint8()
		if err != nil {
			return fmt.Errorf("pattern: %w", err)
		}
		s.Pattern[i] = b
	}
	alphaSrc, err := l.readUint32()
	if err != nil {
		return fmt.Errorf("alpha src mode: %w", err)
	}
	s.AlphaSrcMode = drawmode.AlphaSrcMode(alphaSrc)
	alphaFnc, err := l.readUint32()
	if err != nil {
		return fmt.Errorf("alpha fnc mode: %w", err)
	}
	s.AlphaFncMode = drawmode.AlphaFncMode(alphaFnc)
	capMode, err := l.readUint32()
	if err != nil {
		return fmt.Errorf("line cap mode: %w", err)
	}
	s.LineCapMode = CapMode(capMode)
	joinMode, err := l.readUint32()
	if err != nil {
		return fmt.Errorf("line join mode: %w", err)
	}
	s.LineJoinMode = JoinMode(joinMode)
	if s.MiterLimit, err = l.readFloat64(); err != nil {
		return fmt.Errorf("miter limit: %w", err)
	}
	if s.SubPixelPrecise, err = l.readBool(); err != nil {
		return fmt.Errorf("sub pixel precise: %w", err)
	}
	if s.FontAliasing, err = l.readBool(); err != nil {
		return fmt.Errorf("font aliasing: %w", err)
	}

	count, err := l.readUint32()
	if err != nil {
		return fmt.Errorf("clip rect count: %w", err)
	}
	if count == 0 {
		s.ClippingRegion = nil
		return nil
	}
	rects := make([]region.Rect, 0, count)
	for i := uint32(0); i < count; i++ {
		x1, err1 := l.readUint32()
		y1, err2 := l.readUint32()
		x2, err3 := l.readUint32()
		y2, err4 := l.readUint32()
		if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
			return fmt.Errorf("clip rect %d: truncated", i)
		}
		rects = append(rects, region.Rect{
			X1: int(int32(x1)), Y1: int(int32(y1)),
			X2: int(int32(x2)), Y2: int(int32(y2)),
		})
	}
	s.ClippingRegion = region.New(rects...)
	return nil
}

// WriteFontToLink serializes the font stream spec.md §6 describes,
// separate from WriteToLink.
func (s *DrawState) WriteFontToLink(l *Link, flags serverfont.FontFlags) {
	f := s.Font
	var familyID, styleID uint16
	if f.Family != nil {
		familyID = f.Family.ID
	}
	if f.Style != nil {
		styleID = f.Style.ID
	}
	l.writeUint16(familyID)
	l.writeUint16(styleID)
	l.writeUint32(uint32(flags))
	l.writeFloat64(f.Size)
	l.writeFloat64(f.Shear)
	l.writeFloat64(f.Rotation)
	l.writeUint8(uint8(f.Spacing))
	l.writeUint8(f.Encoding)
	var face uint16
	if f.Style != nil {
		face = uint16(f.Style.Face)
	}
	l.writeUint16(face)
}

// ReadFontFromLink is the inverse of WriteFontToLink; reg resolves the
// wire family/style IDs back to live objects.
func (s *DrawState) ReadFontFromLink(l *Link, reg serverfont.Registry) error {
	familyID, err := l.readUint16()
	if err != nil {
		return fmt.Errorf("family id: %w", err)
	}
	styleID, err := l.readUint16()
	if err != nil {
		return fmt.Errorf("style id: %w", err)
	}
	rawFlags, err := l.readUint32()
	if err != nil {
		return fmt.Errorf("font flags: %w", err)
	}
	flags := serverfont.FontFlags(rawFlags)

	incoming := &serverfont.Font{}
	if fam, style, ok := reg.Resolve(familyID, styleID); ok {
		incoming.Family, incoming.Style = fam, style
	}
	if incoming.Size, err = l.readFloat64(); err != nil {
		return fmt.Errorf("font size: %w", err)
	}
	if incoming.Shear, err = l.readFloat64(); err != nil {
		return fmt.Errorf("font shear: %w", err)
	}
	if incoming.Rotation, err = l.readFloat64(); err != nil {
		return fmt.Errorf("font rotation: %w", err)
	}
	spacing, err := l.readUint8()
	if err != nil {
		return fmt.Errorf("font spacing: %w", err)
	}
	incoming.Spacing = serverfont.Spacing(spacing)
	if incoming.Encoding, err = l.readUint8(); err != nil {
		return fmt.Errorf("font encoding: %w", err)
	}
	if _, err = l.readUint16(); err != nil { // face bits: informational only once style is resolved
		return fmt.Errorf("font face: %w", err)
	}

	if s.Font == nil {
		s.Font = serverfont.Default()
	}
	s.Font.Merge(incoming, flags)
	return nil
}
