// Package biz 提供法律文档分析服务的业务逻辑层。
//
// 组件按依赖顺序排列：
//   - Chunker: 按空行和编号标记切分条款
//   - Classifier: 判断合同类型
//   - RetrievalContextBuilder: 检索相似参考条款并渲染为上下文
//   - ClauseAnalyzer: 结合上下文生成条款风险判断
//   - SummaryStage / DerivedStage: 摘要、实体、流程图、薪资与关键日期
//   - Pipeline: 编排以上阶段并隔离单条款失败
//   - Chatbot / LoanAgent: 基于已有分析结果的独立入口
//   - KnowledgeBase / AnalysisCache: 参考条款写入与结果缓存
package biz
