// Package utils 提供推荐结果上的 Label：随结果透传的解释/观测信息。
package utils

import "strings"

const (
	labelValueSep  = "|"
	labelSourceSep = ","
)

// Label 记录某个阶段对推荐结果的标注，例如 recall_source = "behavioral|trending"。
type Label struct {
	Value  string `json:"value"`
	Source string `json:"source"` // recall / filter / rank / annotate
}

// Values 返回 Value 中累积的各个取值。
func (l Label) Values() []string {
	if l.Value == "" {
		return nil
	}
	return strings.Split(l.Value, labelValueSep)
}

// Has 判断 Value 中是否包含 v。
func (l Label) Has(v string) bool {
	for _, x := range l.Values() {
		if x == v {
			return true
		}
	}
	return false
}

// MergeLabel 合并同名 Label：Value 以 '|' 累积，Source 以 ',' 累积，已存在的取值不重复追加。
func MergeLabel(existing Label, incoming Label) Label {
	if existing.Value == "" {
		return incoming
	}
	if incoming.Value == "" {
		return existing
	}
	return Label{
		Value:  appendUnique(existing.Value, incoming.Value, labelValueSep),
		Source: appendUnique(existing.Source, incoming.Source, labelSourceSep),
	}
}

func appendUnique(joined, v, sep string) string {
	switch {
	case v == "":
		return joined
	case joined == "":
		return v
	}
	for _, x := range strings.Split(joined, sep) {
		if x == v {
			return joined
		}
	}
	return joined + sep + v
}
