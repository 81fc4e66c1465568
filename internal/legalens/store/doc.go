// Package store 提供参考条款知识库的向量存储层。
//
// 每个合同类型对应一个独立分区（Milvus 集合），
// 检索只在分类得到的分区内进行。
package store
