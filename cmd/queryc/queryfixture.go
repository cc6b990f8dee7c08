package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ponyql/queryc/ast"
	"github.com/ponyql/queryc/typesys"
)

// queryFixture is the YAML shape of a `-query file.yaml` fixture: a
// comprehension plus the vartypes map the translator needs for every
// external name it references, decoded by hand the same way
// schemaFixture is — ast.Node is an interface, so yaml.v3 can't unmarshal
// it directly, and a "kind"-tagged recursive decode is the smallest fixture
// format that can still drive every Translator code path (spec.md §6.1).
type queryFixture struct {
	Vartypes map[string]string `yaml:"vartypes"`
	Quals    []qualFixture     `yaml:"quals"`
	Expr     exprNode          `yaml:"expr"`
}

type qualFixture struct {
	Assign string     `yaml:"assign"`
	Iter   exprNode   `yaml:"iter"`
	Ifs    []exprNode `yaml:"ifs"`
}

// exprNode is a generic expression node: exactly one of its fields is set,
// chosen by which YAML key the fixture author wrote.
type exprNode struct {
	Name    *nameNode    `yaml:"name"`
	Getattr *getattrNode `yaml:"getattr"`
	Const   *constNode   `yaml:"const"`
	Compare *compareNode `yaml:"compare"`
	Tuple   []exprNode   `yaml:"tuple"`
	List    []exprNode   `yaml:"list"`
	Not     *exprNode    `yaml:"not"`
	And     []exprNode   `yaml:"and"`
	Or      []exprNode   `yaml:"or"`
	Call    *callNode    `yaml:"call"`
}

type nameNode struct {
	Ident    string `yaml:"ident"`
	External bool   `yaml:"external"`
}

type getattrNode struct {
	Expr     *exprNode `yaml:"expr"`
	Attrname string    `yaml:"attr"`
}

type constNode struct {
	Value interface{} `yaml:"value"`
}

type cmpOpNode struct {
	Op    string   `yaml:"op"`
	Right exprNode `yaml:"right"`
}

type compareNode struct {
	Expr *exprNode   `yaml:"expr"`
	Ops  []cmpOpNode `yaml:"ops"`
}

type callNode struct {
	Func *exprNode  `yaml:"func"`
	Args []exprNode `yaml:"args"`
}

func loadQueryFixture(path string) (*ast.Comprehension, map[string]typesys.Type, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	var fx queryFixture
	if err := yaml.Unmarshal(raw, &fx); err != nil {
		return nil, nil, err
	}

	vartypes := map[string]typesys.Type{}
	for name, typeName := range fx.Vartypes {
		t, err := decodeType(typeName)
		if err != nil {
			return nil, nil, fmt.Errorf("vartypes[%s]: %w", name, err)
		}
		vartypes[name] = t
	}

	comp := &ast.Comprehension{}
	expr, err := fx.Expr.decode()
	if err != nil {
		return nil, nil, fmt.Errorf("expr: %w", err)
	}
	comp.Expr = expr

	for i, q := range fx.Quals {
		iter, err := q.Iter.decode()
		if err != nil {
			return nil, nil, fmt.Errorf("quals[%d].iter: %w", i, err)
		}
		forNode := &ast.For{Assign: q.Assign, Iter: iter}
		for j, ifExpr := range q.Ifs {
			test, err := ifExpr.decode()
			if err != nil {
				return nil, nil, fmt.Errorf("quals[%d].ifs[%d]: %w", i, j, err)
			}
			forNode.Ifs = append(forNode.Ifs, &ast.If{Test: test})
		}
		comp.Quals = append(comp.Quals, forNode)
	}

	return comp, vartypes, nil
}

func (n *exprNode) decode() (ast.Node, error) {
	switch {
	case n.Name != nil:
		return ast.NewName("", n.Name.Ident, n.Name.External), nil
	case n.Getattr != nil:
		inner, err := n.Getattr.Expr.decode()
		if err != nil {
			return nil, err
		}
		return &ast.Getattr{Expr: inner, Attrname: n.Getattr.Attrname}, nil
	case n.Const != nil:
		return &ast.Const{Value: n.Const.Value}, nil
	case n.Compare != nil:
		inner, err := n.Compare.Expr.decode()
		if err != nil {
			return nil, err
		}
		cmp := &ast.Compare{Expr: inner}
		for _, op := range n.Compare.Ops {
			right, err := op.Right.decode()
			if err != nil {
				return nil, err
			}
			cmp.Ops = append(cmp.Ops, ast.CmpOp{Op: op.Op, Right: right})
		}
		return cmp, nil
	case n.Tuple != nil:
		elems, err := decodeList(n.Tuple)
		if err != nil {
			return nil, err
		}
		return &ast.Tuple{Elems: elems}, nil
	case n.List != nil:
		elems, err := decodeList(n.List)
		if err != nil {
			return nil, err
		}
		return &ast.List{Elems: elems}, nil
	case n.Not != nil:
		inner, err := n.Not.decode()
		if err != nil {
			return nil, err
		}
		return &ast.Not{Expr: inner}, nil
	case n.And != nil:
		elems, err := decodeList(n.And)
		if err != nil {
			return nil, err
		}
		return &ast.BoolOp{Kind: ast.BoolAnd, Exprs: elems}, nil
	case n.Or != nil:
		elems, err := decodeList(n.Or)
		if err != nil {
			return nil, err
		}
		return &ast.BoolOp{Kind: ast.BoolOr, Exprs: elems}, nil
	case n.Call != nil:
		fn, err := n.Call.Func.decode()
		if err != nil {
			return nil, err
		}
		args, err := decodeList(n.Call.Args)
		if err != nil {
			return nil, err
		}
		return &ast.CallFunc{Func: fn, Args: args}, nil
	default:
		return nil, fmt.Errorf("empty expression node")
	}
}

func decodeList(nodes []exprNode) ([]ast.Node, error) {
	out := make([]ast.Node, len(nodes))
	for i := range nodes {
		n, err := nodes[i].decode()
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

func decodeType(name string) (typesys.Type, error) {
	switch name {
	case "int":
		return typesys.Primitive(typesys.Int), nil
	case "float":
		return typesys.Primitive(typesys.Float), nil
	case "decimal":
		return typesys.Primitive(typesys.Decimal), nil
	case "date":
		return typesys.Primitive(typesys.Date), nil
	case "datetime":
		return typesys.Primitive(typesys.Datetime), nil
	case "bool":
		return typesys.Primitive(typesys.Bool), nil
	case "string":
		return typesys.Primitive(typesys.String), nil
	case "buffer":
		return typesys.Primitive(typesys.Buffer), nil
	case "None":
		return typesys.Primitive(typesys.None), nil
	default:
		// "Student" -> entity; "Set<Student>" -> a set of that entity, the
		// only composite shape a qualifier source ever needs.
		if len(name) > 5 && name[:4] == "Set<" && name[len(name)-1] == '>' {
			item, err := decodeType(name[4 : len(name)-1])
			if err != nil {
				return typesys.Type{}, err
			}
			return typesys.NewSet(item), nil
		}
		return typesys.NewEntity(name), nil
	}
}
