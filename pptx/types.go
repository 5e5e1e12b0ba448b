// Package pptx parses PPTX (Office Open XML Presentation) packages into
// positioned shape trees.
package pptx

import "encoding/xml"

// XML namespaces used in PPTX files.
const (
	nsPresentationML = "http://schemas.openxmlformats.org/presentationml/2006/main"
	nsDrawingML      = "http://schemas.openxmlformats.org/drawingml/2006/main"
	nsRelationships  = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	nsPackageRels    = "http://schemas.openxmlformats.org/package/2006/relationships"
)

// Relationship types that matter to the reader.
const (
	relTypeSlide      = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/slide"
	relTypeNotesSlide = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/notesSlide"
	relTypeImage      = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/image"
	relTypeHyperlink  = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/hyperlink"
	relTypeOleObject  = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/oleObject"
	relTypePackage    = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/package"
)

// presentationXML represents the ppt/presentation.xml file structure.
type presentationXML struct {
	XMLName     xml.Name        `xml:"presentation"`
	SlideIdList *slideIdListXML `xml:"sldIdLst"`
	SlideSz     *slideSzXML     `xml:"sldSz"`
}

type slideIdListXML struct {
	SlideId []slideIdXML `xml:"sldId"`
}

type slideIdXML struct {
	ID  string `xml:"id,attr"`
	RID string `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships id,attr"`
}

type slideSzXML struct {
	Cx int64 `xml:"cx,attr"` // Width in EMUs
	Cy int64 `xml:"cy,attr"` // Height in EMUs
}

// slideXML represents a ppt/slides/slide*.xml file structure.
type slideXML struct {
	XMLName xml.Name `xml:"sld"`
	CSld    cSldXML  `xml:"cSld"`
}

type cSldXML struct {
	SpTree spTreeXML `xml:"spTree"`
}

// spTreeXML is the shape tree containing all shapes on a slide.
// The same child set appears inside group shapes.
// spTreeXML represents a shape tree. Children are decoded in document
// order so the extractor's Z index reflects the authored stacking order
// across shape kinds.
type spTreeXML struct {
	NvGrpSpPr nvGrpSpPrXML
	Children  []treeChildXML
}

// treeChildXML is one shape-tree child; exactly one field is set.
type treeChildXML struct {
	Sp           *spXML
	Pic          *picXML
	GraphicFrame *graphicFrameXML
	GrpSp        *grpSpXML
}

// UnmarshalXML decodes shape children in the order they appear.
func (t *spTreeXML) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	return decodeShapeChildren(d, &t.NvGrpSpPr, nil, &t.Children)
}

// decodeShapeChildren walks the elements of a shape tree or group shape,
// collecting shape children into one ordered slice and skipping anything
// the reader does not model.
func decodeShapeChildren(d *xml.Decoder, nv *nvGrpSpPrXML, pr *grpSpPrXML, out *[]treeChildXML) error {
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "nvGrpSpPr":
				if err := d.DecodeElement(nv, &el); err != nil {
					return err
				}
			case "grpSpPr":
				if pr == nil {
					if err := d.Skip(); err != nil {
						return err
					}
					continue
				}
				if err := d.DecodeElement(pr, &el); err != nil {
					return err
				}
			case "sp":
				var sp spXML
				if err := d.DecodeElement(&sp, &el); err != nil {
					return err
				}
				*out = append(*out, treeChildXML{Sp: &sp})
			case "pic":
				var pic picXML
				if err := d.DecodeElement(&pic, &el); err != nil {
					return err
				}
				*out = append(*out, treeChildXML{Pic: &pic})
			case "graphicFrame":
				var gf graphicFrameXML
				if err := d.DecodeElement(&gf, &el); err != nil {
					return err
				}
				*out = append(*out, treeChildXML{GraphicFrame: &gf})
			case "grpSp":
				var grp grpSpXML
				if err := d.DecodeElement(&grp, &el); err != nil {
					return err
				}
				*out = append(*out, treeChildXML{GrpSp: &grp})
			default:
				if err := d.Skip(); err != nil {
					return err
				}
			}
		case xml.EndElement:
			return nil
		}
	}
}

type nvGrpSpPrXML struct {
	CNvPr cNvPrXML `xml:"cNvPr"`
}

type cNvPrXML struct {
	ID    int    `xml:"id,attr"`
	Name  string `xml:"name,attr"`
	Title string `xml:"title,attr"`
	Descr string `xml:"descr,attr"` // alt text
}

// spXML represents a shape element.
type spXML struct {
	NvSpPr nvSpPrXML  `xml:"nvSpPr"`
	SpPr   spPrXML    `xml:"spPr"`
	TxBody *txBodyXML `xml:"txBody"`
}

type nvSpPrXML struct {
	CNvPr cNvPrXML `xml:"cNvPr"`
	NvPr  nvPrXML  `xml:"nvPr"`
}

type nvPrXML struct {
	Ph *phXML `xml:"ph"`
}

type phXML struct {
	Type string `xml:"type,attr"` // title, ctrTitle, subTitle, body, sldNum, ftr, dt, sldImg
	Idx  string `xml:"idx,attr"`
}

type spPrXML struct {
	Xfrm *xfrmXML `xml:"xfrm"`
}

type xfrmXML struct {
	Off   *offXML `xml:"off"`
	Ext   *extXML `xml:"ext"`
	ChOff *offXML `xml:"chOff"` // child-space origin, group shapes only
	ChExt *extXML `xml:"chExt"` // child-space extent, group shapes only
}

type offXML struct {
	X int64 `xml:"x,attr"`
	Y int64 `xml:"y,attr"`
}

type extXML struct {
	Cx int64 `xml:"cx,attr"`
	Cy int64 `xml:"cy,attr"`
}

// txBodyXML represents text body content.
type txBodyXML struct {
	BodyPr bodyPrXML `xml:"bodyPr"`
	P      []pXML    `xml:"p"`
}

type bodyPrXML struct {
	Anchor string `xml:"anchor,attr"` // t, ctr, b
}

// pXML represents a paragraph.
type pXML struct {
	PPr        *pPrXML   `xml:"pPr"`
	R          []rXML    `xml:"r"`
	Br         []brXML   `xml:"br"`
	Fld        []fldXML  `xml:"fld"`
	Math       []mathXML `xml:"m"` // inline math zones (a14:m wrapper)
	EndParaRPr *rPrXML   `xml:"endParaRPr"`
}

type pPrXML struct {
	Lvl       int            `xml:"lvl,attr"`
	Algn      string         `xml:"algn,attr"` // l, ctr, r, just
	MarL      int64          `xml:"marL,attr"`
	Indent    int64          `xml:"indent,attr"`
	BuNone    *struct{}      `xml:"buNone"`
	BuChar    *buCharXML     `xml:"buChar"`
	BuAutoNum *buAutoNumXML  `xml:"buAutoNum"`
}

type buCharXML struct {
	Char string `xml:"char,attr"`
}

type buAutoNumXML struct {
	Type    string `xml:"type,attr"` // arabicPeriod, alphaLcParenR, ...
	StartAt int    `xml:"startAt,attr"`
}

// rXML represents a text run.
type rXML struct {
	RPr *rPrXML `xml:"rPr"`
	T   string  `xml:"t"`
}

type rPrXML struct {
	Lang      string        `xml:"lang,attr"`
	Sz        int           `xml:"sz,attr"` // hundredths of a point
	B         *int          `xml:"b,attr"`
	I         *int          `xml:"i,attr"`
	U         string        `xml:"u,attr"`
	SolidFill *solidFillXML `xml:"solidFill"`
	Hlink     *hlinkXML     `xml:"hlinkClick"`
}

type solidFillXML struct {
	SrgbClr *srgbClrXML `xml:"srgbClr"`
}

type srgbClrXML struct {
	Val string `xml:"val,attr"` // RRGGBB hex
}

type hlinkXML struct {
	RID string `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships id,attr"`
}

type brXML struct{}

type fldXML struct {
	Type string `xml:"type,attr"` // slidenum, datetime, ...
	T    string `xml:"t"`
}

// mathXML captures the raw OMML of an inline math zone. The reader
// flattens it to plain text; no equation layout is attempted.
type mathXML struct {
	Inner string `xml:",innerxml"`
}

// picXML represents a picture element.
type picXML struct {
	NvPicPr  nvPicPrXML  `xml:"nvPicPr"`
	BlipFill blipFillXML `xml:"blipFill"`
	SpPr     spPrXML     `xml:"spPr"`
}

type nvPicPrXML struct {
	CNvPr cNvPrXML `xml:"cNvPr"`
}

type blipFillXML struct {
	Blip blipXML `xml:"blip"`
}

type blipXML struct {
	Embed string `xml:"embed,attr"` // r:embed relationship ID
}

// graphicFrameXML represents a graphic frame (tables, charts, OLE objects).
type graphicFrameXML struct {
	NvGraphicFramePr nvGraphicFramePrXML `xml:"nvGraphicFramePr"`
	Xfrm             *xfrmXML            `xml:"xfrm"`
	Graphic          graphicXML          `xml:"graphic"`
}

type nvGraphicFramePrXML struct {
	CNvPr cNvPrXML `xml:"cNvPr"`
}

type graphicXML struct {
	GraphicData graphicDataXML `xml:"graphicData"`
}

type graphicDataXML struct {
	URI string  `xml:"uri,attr"`
	Tbl *tblXML `xml:"tbl"`
	// OLE objects appear either directly or wrapped in an
	// mc:AlternateContent fallback depending on the producer.
	OleObj         *oleObjXML `xml:"oleObj"`
	OleObjFallback *oleObjXML `xml:"AlternateContent>Fallback>oleObj"`
}

type oleObjXML struct {
	ProgID string  `xml:"progId,attr"`
	Name   string  `xml:"name,attr"`
	RID    string  `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships id,attr"`
	Pic    *picXML `xml:"pic"` // preview picture
}

// tblXML represents a table.
type tblXML struct {
	TblPr   *tblPrXML  `xml:"tblPr"`
	TblGrid tblGridXML `xml:"tblGrid"`
	Tr      []trXML    `xml:"tr"`
}

type tblPrXML struct {
	FirstRow string `xml:"firstRow,attr"`
}

type tblGridXML struct {
	GridCol []gridColXML `xml:"gridCol"`
}

type gridColXML struct {
	W int64 `xml:"w,attr"`
}

type trXML struct {
	H  int64   `xml:"h,attr"`
	Tc []tcXML `xml:"tc"`
}

type tcXML struct {
	TxBody   *txBodyXML `xml:"txBody"`
	RowSpan  int        `xml:"rowSpan,attr"`
	GridSpan int        `xml:"gridSpan,attr"`
	VMerge   *int       `xml:"vMerge,attr"`
	HMerge   *int       `xml:"hMerge,attr"`
}

// grpSpXML represents a group of shapes.
// grpSpXML represents a group shape. Like spTreeXML it keeps its children
// in document order.
type grpSpXML struct {
	NvGrpSpPr nvGrpSpPrXML
	GrpSpPr   grpSpPrXML
	Children  []treeChildXML
}

// UnmarshalXML decodes shape children in the order they appear.
func (g *grpSpXML) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	return decodeShapeChildren(d, &g.NvGrpSpPr, &g.GrpSpPr, &g.Children)
}

type grpSpPrXML struct {
	Xfrm *xfrmXML `xml:"xfrm"`
}

// notesSlideXML represents a ppt/notesSlides/notesSlide*.xml file.
type notesSlideXML struct {
	XMLName xml.Name `xml:"notes"`
	CSld    cSldXML  `xml:"cSld"`
}

// relationshipsXML represents .rels files.
type relationshipsXML struct {
	XMLName      xml.Name          `xml:"Relationships"`
	Relationship []relationshipXML `xml:"Relationship"`
}

type relationshipXML struct {
	ID         string `xml:"Id,attr"`
	Type       string `xml:"Type,attr"`
	Target     string `xml:"Target,attr"`
	TargetMode string `xml:"TargetMode,attr"`
}

// corePropertiesXML represents docProps/core.xml.
type corePropertiesXML struct {
	XMLName xml.Name `xml:"coreProperties"`
	Title   string   `xml:"title"`
	Subject string   `xml:"subject"`
	Creator string   `xml:"creator"`
}
