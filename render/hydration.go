package render

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// HydrationDiff compares server markup with the client's first render.
// The two must be byte-identical; when they are not, the structural walk
// names the first divergence so the mismatch is attributable instead of
// a wall of HTML. The empty string means the markup hydrates safely.
func HydrationDiff(serverHTML, clientHTML string) string {
	if serverHTML == clientHTML {
		return ""
	}

	serverNodes, serverErr := parseFragment(serverHTML)
	clientNodes, clientErr := parseFragment(clientHTML)
	if serverErr != nil || clientErr != nil {
		return "markup differs and could not be parsed for a structural diff"
	}

	if diff := diffNodeLists(serverNodes, clientNodes, "root"); diff != "" {
		return diff
	}
	// Structurally equal but not byte-identical still breaks hydration:
	// the client reconciles against the exact server bytes.
	return "markup is structurally equal but not byte-identical (whitespace or attribute order)"
}

func parseFragment(fragment string) ([]*html.Node, error) {
	container := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	return html.ParseFragment(strings.NewReader(fragment), container)
}

func diffNodeLists(server, client []*html.Node, path string) string {
	if len(server) != len(client) {
		return fmt.Sprintf("%s: server has %d children, client has %d", path, len(server), len(client))
	}
	for i := range server {
		if diff := diffNodes(server[i], client[i], fmt.Sprintf("%s[%d]", path, i)); diff != "" {
			return diff
		}
	}
	return ""
}

func diffNodes(server, client *html.Node, path string) string {
	if server.Type != client.Type {
		return fmt.Sprintf("%s: node type differs", path)
	}
	switch server.Type {
	case html.TextNode:
		if server.Data != client.Data {
			return fmt.Sprintf("%s: text %q != %q", path, server.Data, client.Data)
		}
	case html.ElementNode:
		if server.Data != client.Data {
			return fmt.Sprintf("%s: element <%s> != <%s>", path, server.Data, client.Data)
		}
		if diff := diffAttrs(server, client, path); diff != "" {
			return diff
		}
	}
	return diffNodeLists(childNodes(server), childNodes(client), path+"/"+server.Data)
}

func diffAttrs(server, client *html.Node, path string) string {
	serverAttrs := attrMap(server)
	clientAttrs := attrMap(client)
	keys := make([]string, 0, len(serverAttrs)+len(clientAttrs))
	for k := range serverAttrs {
		keys = append(keys, k)
	}
	for k := range clientAttrs {
		if _, ok := serverAttrs[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		sv, sok := serverAttrs[k]
		cv, cok := clientAttrs[k]
		if !sok {
			return fmt.Sprintf("%s: attribute %q only on client", path, k)
		}
		if !cok {
			return fmt.Sprintf("%s: attribute %q only on server", path, k)
		}
		if sv != cv {
			return fmt.Sprintf("%s: attribute %q is %q on server, %q on client", path, k, sv, cv)
		}
	}
	return ""
}

func attrMap(n *html.Node) map[string]string {
	out := make(map[string]string, len(n.Attr))
	for _, a := range n.Attr {
		out[a.Key] = a.Val
	}
	return out
}

func childNodes(n *html.Node) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, c)
	}
	return out
}
