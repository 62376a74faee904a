package snapshot

import "gopkg.in/yaml.v3"

// pos is the line and column of a YAML node, both 1-based.
type pos struct {
	Line, Col int
}

func posOf(n *yaml.Node) pos { return pos{Line: n.Line, Col: n.Column} }

type document struct {
	Files   []fileDoc   `yaml:"files"`
	Aspects []aspectDoc `yaml:"aspects"`
}

type fileDoc struct {
	Path   string    `yaml:"path"`
	Usings []string  `yaml:"usings"`
	Types  []typeDoc `yaml:"types"`
	pos    pos
}

type typeDoc struct {
	Name      string      `yaml:"name"`
	Namespace string      `yaml:"namespace"`
	Kind      string      `yaml:"kind"`
	Access    string      `yaml:"access"`
	Modifiers []string    `yaml:"modifiers"`
	Bases     []string    `yaml:"bases"`
	Part      *int        `yaml:"part"`
	Doc       string      `yaml:"doc"`
	Attrs     []attrDoc   `yaml:"attributes"`
	Members   []memberDoc `yaml:"members"`
	Types     []typeDoc   `yaml:"types"`
	pos       pos
}

type paramDoc struct {
	Name    string  `yaml:"name"`
	Type    string  `yaml:"type"`
	Mode    string  `yaml:"mode"`
	Default *string `yaml:"default"`
}

type argDoc struct {
	Name string `yaml:"name"`
	Mode string `yaml:"mode"`
	Expr string `yaml:"expr"`
}

type initDoc struct {
	Kind   string   `yaml:"kind"`
	Args   []argDoc `yaml:"args"`
	Target string   `yaml:"target"`
}

type attrDoc struct {
	Name string `yaml:"name"`
	Args string `yaml:"args"`
}

type originDoc struct {
	Kind       string `yaml:"kind"`
	Aspect     string `yaml:"aspect"`
	Layer      []int  `yaml:"layer"`
	Of         string `yaml:"of"`
	ForwardsTo string `yaml:"forwards_to"`
}

// memberDoc is a member of a type, or the payload of an introduce advice.
// Accessor bodies are given by get/set/add/remove; accessors without a
// body are listed in accessors.
type memberDoc struct {
	Kind      string     `yaml:"kind"`
	Name      string     `yaml:"name"`
	Type      string     `yaml:"type"`
	Access    string     `yaml:"access"`
	Modifiers []string   `yaml:"modifiers"`
	Params    []paramDoc `yaml:"params"`
	Body      *string    `yaml:"body"`
	Get       *string    `yaml:"get"`
	Set       *string    `yaml:"set"`
	Add       *string    `yaml:"add"`
	Remove    *string    `yaml:"remove"`
	Accessors []string   `yaml:"accessors"`
	Auto      bool       `yaml:"auto"`
	Value     *string    `yaml:"value"`
	Init      *initDoc   `yaml:"init"`
	Attrs     []attrDoc  `yaml:"attributes"`
	Doc       string     `yaml:"doc"`
	Origin    *originDoc `yaml:"origin"`

	// type introductions only
	Namespace string      `yaml:"namespace"`
	TypeKind  string      `yaml:"type_kind"`
	Bases     []string    `yaml:"bases"`
	Members   []memberDoc `yaml:"members"`
	pos       pos
}

type aspectDoc struct {
	Name      string        `yaml:"name"`
	After     []afterDoc    `yaml:"after"`
	Instances []instanceDoc `yaml:"instances"`
	pos       pos
}

// afterDoc is one precedence edge; it keeps its own position so that an
// unknown name can be reported where it is written.
type afterDoc struct {
	Name string
	pos  pos
}

type instanceDoc struct {
	Advices []adviceDoc `yaml:"advices"`
}

type adviceDoc struct {
	Kind   string `yaml:"kind"`
	Target string `yaml:"target"`
	Policy string `yaml:"policy"`

	Member *memberDoc `yaml:"member"`

	Body   *string `yaml:"body"`
	Get    *string `yaml:"get"`
	Set    *string `yaml:"set"`
	Add    *string `yaml:"add"`
	Remove *string `yaml:"remove"`

	Param *paramDoc `yaml:"param"`
	Pull  string    `yaml:"pull"`

	Attribute *attrDoc `yaml:"attribute"`
	Name      string   `yaml:"name"`
	pos       pos
}

func (d *fileDoc) UnmarshalYAML(n *yaml.Node) error {
	type plain fileDoc
	if err := n.Decode((*plain)(d)); err != nil {
		return err
	}
	d.pos = posOf(n)
	return nil
}

func (d *typeDoc) UnmarshalYAML(n *yaml.Node) error {
	type plain typeDoc
	if err := n.Decode((*plain)(d)); err != nil {
		return err
	}
	d.pos = posOf(n)
	return nil
}

func (d *memberDoc) UnmarshalYAML(n *yaml.Node) error {
	type plain memberDoc
	if err := n.Decode((*plain)(d)); err != nil {
		return err
	}
	d.pos = posOf(n)
	return nil
}

func (d *aspectDoc) UnmarshalYAML(n *yaml.Node) error {
	type plain aspectDoc
	if err := n.Decode((*plain)(d)); err != nil {
		return err
	}
	d.pos = posOf(n)
	return nil
}

func (d *afterDoc) UnmarshalYAML(n *yaml.Node) error {
	if err := n.Decode(&d.Name); err != nil {
		return err
	}
	d.pos = posOf(n)
	return nil
}

func (d *adviceDoc) UnmarshalYAML(n *yaml.Node) error {
	type plain adviceDoc
	if err := n.Decode((*plain)(d)); err != nil {
		return err
	}
	d.pos = posOf(n)
	return nil
}
