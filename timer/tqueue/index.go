package tqueue

import "github.com/google/btree"

// B 树的度
const indexDegree = 8

// lessNode 按 (deadline, id) 升序排列
func lessNode(a, b *node) bool {
	if a.timeout.AbsTime != b.timeout.AbsTime {
		return a.timeout.AbsTime < b.timeout.AbsTime
	}
	return a.id < b.id
}

// index 活跃槽位的有序索引.
// 节点在索引中时不能修改 AbsTime, 必须先 remove 再修改.
type index struct {
	tree *btree.BTreeG[*node]
}

// newIndex 构造函数
func newIndex() *index {
	return &index{tree: btree.NewG[*node](indexDegree, lessNode)}
}

// insert 插入一个节点
func (x *index) insert(n *node) {
	x.tree.ReplaceOrInsert(n)
}

// remove 移除一个节点, 返回节点是否存在
func (x *index) remove(n *node) bool {
	_, ok := x.tree.Delete(n)
	return ok
}

// peekMin 返回最早到期的节点
func (x *index) peekMin() (*node, bool) {
	return x.tree.Min()
}

// len 返回索引中的节点数
func (x *index) len() int {
	return x.tree.Len()
}

// ascend 按到期顺序遍历, fn 返回 false 时停止
func (x *index) ascend(fn func(n *node) bool) {
	x.tree.Ascend(func(n *node) bool {
		return fn(n)
	})
}
