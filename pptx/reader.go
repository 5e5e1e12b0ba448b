package pptx

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/tethys-labs/slideflow/model"
)

// ErrNotPowerPoint is returned when the input is not a PPTX package.
var ErrNotPowerPoint = errors.New("not a PowerPoint presentation")

// Reader parses a PPTX package into a model.Deck.
type Reader struct {
	zr       *zip.Reader
	files    map[string]*zip.File
	warnings []model.Warning
}

// NewReader creates a reader over PPTX content.
func NewReader(r io.ReaderAt, size int64) (*Reader, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotPowerPoint, err)
	}

	rd := &Reader{
		zr:    zr,
		files: make(map[string]*zip.File, len(zr.File)),
	}
	for _, f := range zr.File {
		rd.files[f.Name] = f
	}

	if _, ok := rd.files["ppt/presentation.xml"]; !ok {
		return nil, fmt.Errorf("%w: missing ppt/presentation.xml", ErrNotPowerPoint)
	}
	return rd, nil
}

// NewReaderFromBytes creates a reader over an in-memory PPTX payload.
func NewReaderFromBytes(data []byte) (*Reader, error) {
	return NewReader(bytes.NewReader(data), int64(len(data)))
}

// Open reads and parses the package at the given path.
func Open(filename string) (*Reader, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", filename, err)
	}
	return NewReaderFromBytes(data)
}

// Warnings returns the non-fatal problems collected while parsing.
func (r *Reader) Warnings() []model.Warning {
	return r.warnings
}

func (r *Reader) warn(format string, args ...any) {
	r.warnings = append(r.warnings, model.Warning{
		Code:    model.WarnUnsupportedInput,
		Message: fmt.Sprintf(format, args...),
	})
}

// readPart returns the raw bytes of a package part.
func (r *Reader) readPart(name string) ([]byte, error) {
	f, ok := r.files[name]
	if !ok {
		return nil, fmt.Errorf("part %s not found", name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("opening part %s: %w", name, err)
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// parseRels parses the relationships file for the given part, returning a
// map from relationship ID to relationship. A missing rels part yields an
// empty map.
func (r *Reader) parseRels(partName string) (map[string]relationshipXML, error) {
	dir, base := path.Split(partName)
	relsName := path.Join(dir, "_rels", base+".rels")

	rels := make(map[string]relationshipXML)
	data, err := r.readPart(relsName)
	if err != nil {
		return rels, nil
	}

	var parsed relationshipsXML
	if err := xml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", relsName, err)
	}
	for _, rel := range parsed.Relationship {
		rels[rel.ID] = rel
	}
	return rels, nil
}

// resolveTarget turns a relationship target into a package part name,
// relative to the directory of the source part.
func resolveTarget(sourcePart, target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(target, "/")
	}
	dir, _ := path.Split(sourcePart)
	return path.Join(dir, target)
}

// Parse reads the whole package into a deck.
func (r *Reader) Parse() (*model.Deck, error) {
	presData, err := r.readPart("ppt/presentation.xml")
	if err != nil {
		return nil, err
	}

	var pres presentationXML
	if err := xml.Unmarshal(presData, &pres); err != nil {
		return nil, fmt.Errorf("parsing presentation.xml: %w", err)
	}

	deck := &model.Deck{}
	if pres.SlideSz != nil {
		deck.Width = model.FromEMU(pres.SlideSz.Cx)
		deck.Height = model.FromEMU(pres.SlideSz.Cy)
	} else {
		// 10in x 7.5in, the 4:3 default
		deck.Width, deck.Height = 720, 540
	}
	deck.Title = r.parseCoreTitle()

	presRels, err := r.parseRels("ppt/presentation.xml")
	if err != nil {
		return nil, err
	}

	slideParts := r.slidePartNames(&pres, presRels)
	for i, part := range slideParts {
		slide, err := r.parseSlide(part, i, deck)
		if err != nil {
			r.warn("skipping slide %d: %v", i+1, err)
			continue
		}
		deck.Slides = append(deck.Slides, slide)
	}

	return deck, nil
}

// slidePartNames returns slide part names in presentation order. When the
// sldIdLst is missing it falls back to the lexical order of slide parts.
func (r *Reader) slidePartNames(pres *presentationXML, presRels map[string]relationshipXML) []string {
	var parts []string
	if pres.SlideIdList != nil {
		for _, sid := range pres.SlideIdList.SlideId {
			rel, ok := presRels[sid.RID]
			if !ok || rel.Type != relTypeSlide {
				r.warn("slide id %s has no slide relationship", sid.ID)
				continue
			}
			parts = append(parts, resolveTarget("ppt/presentation.xml", rel.Target))
		}
		return parts
	}

	for name := range r.files {
		if strings.HasPrefix(name, "ppt/slides/slide") && strings.HasSuffix(name, ".xml") {
			parts = append(parts, name)
		}
	}
	sort.Strings(parts)
	return parts
}

func (r *Reader) parseCoreTitle() string {
	data, err := r.readPart("docProps/core.xml")
	if err != nil {
		return ""
	}
	var core corePropertiesXML
	if err := xml.Unmarshal(data, &core); err != nil {
		return ""
	}
	return core.Title
}

// parseSlide parses one slide part into a model.Slide.
func (r *Reader) parseSlide(partName string, index int, deck *model.Deck) (*model.Slide, error) {
	data, err := r.readPart(partName)
	if err != nil {
		return nil, err
	}

	var sld slideXML
	if err := xml.Unmarshal(data, &sld); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", partName, err)
	}

	rels, err := r.parseRels(partName)
	if err != nil {
		return nil, err
	}

	slide := &model.Slide{
		Index:  index,
		Width:  deck.Width,
		Height: deck.Height,
	}

	ex := &shapeExtractor{reader: r, partName: partName, rels: rels, slide: slide}
	slide.Shapes = ex.extractTree(&sld.CSld.SpTree, identityFrame())
	slide.Notes = r.parseNotes(partName, rels)

	return slide, nil
}

// parseNotes extracts the speaker notes paragraphs for a slide, if any.
func (r *Reader) parseNotes(slidePart string, rels map[string]relationshipXML) []model.Paragraph {
	var notesPart string
	for _, rel := range rels {
		if rel.Type == relTypeNotesSlide {
			notesPart = resolveTarget(slidePart, rel.Target)
			break
		}
	}
	if notesPart == "" {
		return nil
	}

	data, err := r.readPart(notesPart)
	if err != nil {
		r.warn("notes part %s unreadable: %v", notesPart, err)
		return nil
	}

	var notes notesSlideXML
	if err := xml.Unmarshal(data, &notes); err != nil {
		r.warn("parsing %s: %v", notesPart, err)
		return nil
	}

	notesRels, err := r.parseRels(notesPart)
	if err != nil {
		notesRels = nil
	}

	var paras []model.Paragraph
	for _, ch := range notes.CSld.SpTree.Children {
		sp := ch.Sp
		if sp == nil {
			continue
		}
		// Notes pages carry a slide image and slide number placeholder
		// besides the actual notes body.
		ph := placeholderType(sp)
		if ph != "body" && ph != "" {
			continue
		}
		if sp.TxBody == nil {
			continue
		}
		ex := &shapeExtractor{reader: r, partName: notesPart, rels: notesRels}
		for j := range sp.TxBody.P {
			p := ex.extractParagraph(&sp.TxBody.P[j])
			if strings.TrimSpace(p.PlainText()) != "" || len(paras) > 0 {
				paras = append(paras, p)
			}
		}
	}
	// Drop trailing blank paragraphs.
	for len(paras) > 0 && strings.TrimSpace(paras[len(paras)-1].PlainText()) == "" {
		paras = paras[:len(paras)-1]
	}
	return paras
}

func placeholderType(sp *spXML) string {
	if sp.NvSpPr.NvPr.Ph == nil {
		return ""
	}
	return sp.NvSpPr.NvPr.Ph.Type
}

// frame maps child-space coordinates into slide space. Group shapes carry
// their own child coordinate system (chOff/chExt) that must be scaled into
// the group's slide-space box.
type frame struct {
	offX, offY     float64 // slide-space origin
	scaleX, scaleY float64
	chOffX, chOffY float64 // child-space origin
}

func identityFrame() frame {
	return frame{scaleX: 1, scaleY: 1}
}

func (f frame) apply(b model.BBox) model.BBox {
	return model.BBox{
		X:      f.offX + (b.X-f.chOffX)*f.scaleX,
		Y:      f.offY + (b.Y-f.chOffY)*f.scaleY,
		Width:  b.Width * f.scaleX,
		Height: b.Height * f.scaleY,
	}
}

// compose returns the frame for children of a group whose xfrm is given in
// the current frame's coordinate space.
func (f frame) compose(x *xfrmXML) frame {
	if x == nil || x.Off == nil || x.Ext == nil {
		return f
	}
	groupBox := f.apply(model.BBoxFromEMU(x.Off.X, x.Off.Y, x.Ext.Cx, x.Ext.Cy))
	child := frame{
		offX: groupBox.X, offY: groupBox.Y,
		scaleX: 1, scaleY: 1,
	}
	if x.ChOff != nil {
		child.chOffX = model.FromEMU(x.ChOff.X)
		child.chOffY = model.FromEMU(x.ChOff.Y)
	}
	if x.ChExt != nil && x.ChExt.Cx > 0 && x.ChExt.Cy > 0 {
		child.scaleX = groupBox.Width / model.FromEMU(x.ChExt.Cx)
		child.scaleY = groupBox.Height / model.FromEMU(x.ChExt.Cy)
	}
	return child
}

// shapeExtractor walks a shape tree, resolving relationships against the
// part the tree came from.
type shapeExtractor struct {
	reader   *Reader
	partName string
	rels     map[string]relationshipXML
	slide    *model.Slide
	z        int
}

func (ex *shapeExtractor) nextZ() int {
	z := ex.z
	ex.z++
	return z
}

func (ex *shapeExtractor) extractTree(tree *spTreeXML, fr frame) []*model.Shape {
	var shapes []*model.Shape
	for _, ch := range tree.Children {
		var s *model.Shape
		switch {
		case ch.Sp != nil:
			s = ex.extractSp(ch.Sp, fr)
		case ch.Pic != nil:
			s = ex.extractPic(ch.Pic, fr)
		case ch.GraphicFrame != nil:
			s = ex.extractGraphicFrame(ch.GraphicFrame, fr)
		case ch.GrpSp != nil:
			s = ex.extractGroup(ch.GrpSp, fr)
		}
		if s != nil {
			shapes = append(shapes, s)
		}
	}
	return shapes
}

func (ex *shapeExtractor) extractSp(sp *spXML, fr frame) *model.Shape {
	s := &model.Shape{
		ID:          fmt.Sprintf("%d", sp.NvSpPr.CNvPr.ID),
		Name:        sp.NvSpPr.CNvPr.Name,
		Z:           ex.nextZ(),
		Placeholder: placeholderType(sp),
	}
	s.BBox = ex.shapeBBox(sp.SpPr.Xfrm, fr, s.Placeholder)

	if sp.TxBody != nil {
		for i := range sp.TxBody.P {
			s.Paragraphs = append(s.Paragraphs, ex.extractParagraph(&sp.TxBody.P[i]))
		}
	}
	return s
}

// shapeBBox resolves a shape's bounding box. Placeholder shapes often omit
// xfrm and inherit geometry from the slide layout; instead of chasing the
// layout chain the reader synthesizes the conventional placeholder regions.
func (ex *shapeExtractor) shapeBBox(x *xfrmXML, fr frame, ph string) model.BBox {
	if x != nil && x.Off != nil && x.Ext != nil {
		return fr.apply(model.BBoxFromEMU(x.Off.X, x.Off.Y, x.Ext.Cx, x.Ext.Cy))
	}
	if ex.slide == nil {
		return model.BBox{}
	}
	w, h := ex.slide.Width, ex.slide.Height
	switch ph {
	case "title", "ctrTitle":
		return model.NewBBox(w*0.08, h*0.05, w*0.84, h*0.15)
	case "subTitle":
		return model.NewBBox(w*0.08, h*0.22, w*0.84, h*0.12)
	case "sldNum":
		return model.NewBBox(w*0.88, h*0.92, w*0.08, h*0.06)
	case "ftr", "dt":
		return model.NewBBox(w*0.08, h*0.92, w*0.3, h*0.06)
	case "":
		return model.BBox{}
	default:
		return model.NewBBox(w*0.08, h*0.25, w*0.84, h*0.65)
	}
}

func (ex *shapeExtractor) extractParagraph(p *pXML) model.Paragraph {
	para := model.Paragraph{}

	if p.PPr != nil {
		para.Level = p.PPr.Lvl
		para.Alignment = p.PPr.Algn
		switch {
		case p.PPr.BuNone != nil:
			para.Bullet = model.BulletInfo{Kind: model.BulletNone}
		case p.PPr.BuAutoNum != nil:
			para.Bullet = model.BulletInfo{
				Kind:    model.BulletAutoNum,
				StartAt: p.PPr.BuAutoNum.StartAt,
			}
		case p.PPr.BuChar != nil:
			para.Bullet = model.BulletInfo{
				Kind: model.BulletChar,
				Char: p.PPr.BuChar.Char,
			}
		}
	}

	for i := range p.R {
		para.Runs = append(para.Runs, ex.extractRun(&p.R[i]))
	}
	for i := range p.Fld {
		if t := p.Fld[i].T; t != "" {
			para.Runs = append(para.Runs, model.TextRun{Text: t})
		}
	}
	for i := range p.Math {
		if t := flattenMath(p.Math[i].Inner); t != "" {
			para.Runs = append(para.Runs, model.TextRun{Text: t, IsMath: true})
		}
	}

	return para
}

func (ex *shapeExtractor) extractRun(r *rXML) model.TextRun {
	run := model.TextRun{Text: r.T}
	if r.RPr == nil {
		return run
	}

	run.Bold = r.RPr.B != nil && *r.RPr.B == 1
	run.Italic = r.RPr.I != nil && *r.RPr.I == 1
	run.Underline = r.RPr.U != "" && r.RPr.U != "none"
	if r.RPr.Sz > 0 {
		run.Size = float64(r.RPr.Sz) / 100.0
	}
	if r.RPr.SolidFill != nil && r.RPr.SolidFill.SrgbClr != nil {
		if c, ok := parseHexColor(r.RPr.SolidFill.SrgbClr.Val); ok {
			run.Color = &c
		}
	}
	if r.RPr.Hlink != nil && r.RPr.Hlink.RID != "" {
		if rel, ok := ex.rels[r.RPr.Hlink.RID]; ok && rel.Type == relTypeHyperlink {
			run.Hyperlink = rel.Target
		}
	}
	return run
}

func (ex *shapeExtractor) extractPic(pic *picXML, fr frame) *model.Shape {
	s := &model.Shape{
		ID:   fmt.Sprintf("%d", pic.NvPicPr.CNvPr.ID),
		Name: pic.NvPicPr.CNvPr.Name,
		Kind: model.KindPicture,
		Z:    ex.nextZ(),
		BBox: ex.shapeBBox(pic.SpPr.Xfrm, fr, ""),
	}

	img, err := ex.loadImage(pic.BlipFill.Blip.Embed)
	if err != nil {
		ex.reader.warn("picture %q: %v", s.Name, err)
		return nil
	}
	img.AltText = pic.NvPicPr.CNvPr.Descr
	s.Image = img
	return s
}

func (ex *shapeExtractor) loadImage(rid string) (*model.Image, error) {
	if rid == "" {
		return nil, errors.New("picture has no image relationship")
	}
	rel, ok := ex.rels[rid]
	if !ok {
		return nil, fmt.Errorf("image relationship %s not found", rid)
	}
	part := resolveTarget(ex.partName, rel.Target)
	data, err := ex.reader.readPart(part)
	if err != nil {
		return nil, err
	}
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(part)), ".")
	return &model.Image{Data: data, Ext: ext}, nil
}

func (ex *shapeExtractor) extractGraphicFrame(gf *graphicFrameXML, fr frame) *model.Shape {
	s := &model.Shape{
		ID:   fmt.Sprintf("%d", gf.NvGraphicFramePr.CNvPr.ID),
		Name: gf.NvGraphicFramePr.CNvPr.Name,
		Z:    ex.nextZ(),
		BBox: ex.shapeBBox(gf.Xfrm, fr, ""),
	}

	gd := &gf.Graphic.GraphicData
	ole := gd.OleObj
	if ole == nil {
		ole = gd.OleObjFallback
	}
	switch {
	case gd.Tbl != nil:
		s.Kind = model.KindTable
		s.Table = ex.extractTable(gd.Tbl)
	case ole != nil:
		s.Kind = model.KindEmbedded
		s.Embedded = ex.extractOle(ole)
	default:
		// Charts, SmartArt and other graphic payloads carry no
		// reusable flow text.
		ex.reader.warn("graphic frame %q with unsupported payload %s skipped", s.Name, gd.URI)
		return nil
	}
	return s
}

func (ex *shapeExtractor) extractOle(ole *oleObjXML) *model.Embedded {
	emb := &model.Embedded{ProgID: ole.ProgID}

	if ole.RID != "" {
		if rel, ok := ex.rels[ole.RID]; ok {
			part := resolveTarget(ex.partName, rel.Target)
			if data, err := ex.reader.readPart(part); err == nil {
				emb.Data = data
				emb.PartExt = strings.TrimPrefix(strings.ToLower(path.Ext(part)), ".")
			} else {
				ex.reader.warn("embedded part %s unreadable: %v", part, err)
			}
		}
	}
	if ole.Pic != nil {
		if img, err := ex.loadImage(ole.Pic.BlipFill.Blip.Embed); err == nil {
			img.AltText = ole.Pic.NvPicPr.CNvPr.Descr
			emb.Preview = img
		}
	}
	return emb
}

func (ex *shapeExtractor) extractTable(tbl *tblXML) *model.Table {
	table := &model.Table{}
	for i := range tbl.Tr {
		tr := &tbl.Tr[i]
		row := make([]model.Cell, 0, len(tr.Tc))
		for j := range tr.Tc {
			tc := &tr.Tc[j]
			cell := model.Cell{
				RowSpan: maxInt(tc.RowSpan, 1),
				ColSpan: maxInt(tc.GridSpan, 1),
				Merged:  tc.VMerge != nil || tc.HMerge != nil,
			}
			if tc.TxBody != nil {
				for k := range tc.TxBody.P {
					cell.Paragraphs = append(cell.Paragraphs, ex.extractParagraph(&tc.TxBody.P[k]))
				}
			}
			row = append(row, cell)
		}
		table.Rows = append(table.Rows, row)
	}
	return table
}

func (ex *shapeExtractor) extractGroup(grp *grpSpXML, fr frame) *model.Shape {
	s := &model.Shape{
		ID:   fmt.Sprintf("%d", grp.NvGrpSpPr.CNvPr.ID),
		Name: grp.NvGrpSpPr.CNvPr.Name,
		Kind: model.KindGroup,
		Z:    ex.nextZ(),
	}

	childFrame := fr.compose(grp.GrpSpPr.Xfrm)
	if x := grp.GrpSpPr.Xfrm; x != nil && x.Off != nil && x.Ext != nil {
		s.BBox = fr.apply(model.BBoxFromEMU(x.Off.X, x.Off.Y, x.Ext.Cx, x.Ext.Cy))
	}

	tree := spTreeXML{Children: grp.Children}
	s.Children = ex.extractTree(&tree, childFrame)

	if s.BBox.IsEmpty() {
		for _, c := range s.Children {
			s.BBox = s.BBox.Union(c.BBox)
		}
	}
	return s
}

// flattenMath strips OMML markup down to its character data. Equation
// layout is not reproduced; the linear text is kept as a math run.
func flattenMath(inner string) string {
	dec := xml.NewDecoder(strings.NewReader("<m>" + inner + "</m>"))
	var sb strings.Builder
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		if cd, ok := tok.(xml.CharData); ok {
			sb.Write(cd)
		}
	}
	return strings.TrimSpace(sb.String())
}

func parseHexColor(s string) (model.Color, bool) {
	if len(s) != 6 {
		return model.Color{}, false
	}
	var v [3]uint8
	for i := 0; i < 3; i++ {
		hi, ok1 := hexVal(s[i*2])
		lo, ok2 := hexVal(s[i*2+1])
		if !ok1 || !ok2 {
			return model.Color{}, false
		}
		v[i] = hi<<4 | lo
	}
	return model.Color{R: v[0], G: v[1], B: v[2]}, true
}

func hexVal(c byte) (uint8, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
